// cinder-cli is a command-line tool for inspecting and validating
// cinder blocks offline.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Cinder-Labs/cinder-chain/config"
	"github.com/Cinder-Labs/cinder-chain/internal/log"
	"github.com/Cinder-Labs/cinder-chain/internal/orphanpool"
	"github.com/Cinder-Labs/cinder-chain/internal/storage"
	"github.com/Cinder-Labs/cinder-chain/internal/validation"
	"github.com/Cinder-Labs/cinder-chain/pkg/block"
	"github.com/Cinder-Labs/cinder-chain/pkg/crypto"
	"github.com/Cinder-Labs/cinder-chain/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	network := "mainnet"
	logLevel := "warn"

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		case args[0] == "--log-level" && len(args) > 1:
			logLevel = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--log-level="):
			logLevel = args[0][len("--log-level="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	if err := log.Init(logLevel, false, ""); err != nil {
		fatal("init logging: %v", err)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "validate":
		cmdValidate(network, cmdArgs)
	case "pool":
		cmdPool(network, cmdArgs)
	case "inspect":
		cmdInspect(cmdArgs)
	case "decode-aux":
		cmdDecodeAux(cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: cinder-cli [global flags] <command> [flags]

Global flags:
  --network <net>       mainnet (default) or testnet
  --log-level <level>   debug, info, warn (default), error

Commands:
  validate <block.json>           Run stateless consensus checks on a block
      --bypass-range-proofs       Skip range proof verification (trusted input only)
  pool add <block.json>           Validate a block and quarantine it as an orphan
  pool list                       List quarantined blocks, oldest first
  pool remove <hash>              Drop a quarantined block
      --datadir <dir>             Data directory holding the orphan pool
  inspect <block.json>            Show block summary
  decode-aux <hex>                Decode a length-prefixed auxiliary field
`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// parseNetwork maps the --network flag to a network type.
func parseNetwork(network string) config.NetworkType {
	switch network {
	case "mainnet":
		return config.Mainnet
	case "testnet":
		return config.Testnet
	}
	fatal("unknown network %q (mainnet or testnet)", network)
	return config.Mainnet // unreachable
}

// readBlock loads and decodes a JSON-encoded block from path.
func readBlock(path string) *block.Block {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("read block file: %v", err)
	}
	var blk block.Block
	if err := json.Unmarshal(data, &blk); err != nil {
		fatal("decode block: %v", err)
	}
	if blk.Header == nil {
		fatal("block file has no header")
	}
	return &blk
}

// ── validate ────────────────────────────────────────────────────────────

func cmdValidate(network string, args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	bypass := fs.Bool("bypass-range-proofs", false, "Skip range proof verification")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fatal("Usage: cinder-cli validate [--bypass-range-proofs] <block.json>")
	}

	blk := readBlock(fs.Arg(0))
	rules := config.DefaultConsensusManager(parseNetwork(network))
	validator := validation.NewOrphanBlockValidator(rules, *bypass, crypto.NewFactories())

	start := time.Now()
	if err := validator.Validate(blk); err != nil {
		fmt.Printf("Block:  %s\n", blk.Hash())
		fmt.Printf("Height: %d\n", blk.Header.Height)
		fmt.Printf("Result: INVALID\n")
		fmt.Printf("Reason: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Block:   %s\n", blk.Hash())
	fmt.Printf("Height:  %d\n", blk.Header.Height)
	fmt.Printf("Result:  VALID\n")
	fmt.Printf("Checked: %s in %s\n", blk.Body.CountsString(), time.Since(start).Round(time.Microsecond))
	if *bypass {
		fmt.Println("Note: range proofs were NOT verified.")
	}
}

// ── pool ────────────────────────────────────────────────────────────────

// openOrphanPool opens the orphan pool in its own namespace of the
// data directory's badger store. The caller must close the returned DB.
func openOrphanPool(dataDir string) (*orphanpool.Pool, storage.DB) {
	db, err := storage.NewBadger(filepath.Join(dataDir, "orphans"))
	if err != nil {
		fatal("open orphan database: %v", err)
	}
	pool, err := orphanpool.New(storage.NewPrefixDB(db, []byte("orphan/")), 0)
	if err != nil {
		db.Close()
		fatal("open orphan pool: %v", err)
	}
	return pool, db
}

func cmdPool(network string, args []string) {
	fs := flag.NewFlagSet("pool", flag.ExitOnError)
	dataDir := fs.String("datadir", config.DefaultDataDir(), "Data directory holding the orphan pool")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fatal("Usage: cinder-cli pool [--datadir <dir>] <add block.json | list | remove hash>")
	}

	pool, db := openOrphanPool(*dataDir)
	defer db.Close()

	switch fs.Arg(0) {
	case "add":
		if fs.NArg() < 2 {
			fatal("Usage: cinder-cli pool add <block.json>")
		}
		blk := readBlock(fs.Arg(1))

		// Only blocks that pass stateless validation are quarantined.
		rules := config.DefaultConsensusManager(parseNetwork(network))
		validator := validation.NewOrphanBlockValidator(rules, false, crypto.NewFactories())
		if err := validator.Validate(blk); err != nil {
			fatal("block rejected, not quarantined: %v", err)
		}
		if err := pool.Add(blk); err != nil {
			fatal("quarantine block: %v", err)
		}
		fmt.Printf("Quarantined %s (height %d), pool holds %d block(s)\n",
			blk.Hash(), blk.Header.Height, pool.Len())

	case "list":
		hashes := pool.Hashes()
		if len(hashes) == 0 {
			fmt.Println("Orphan pool is empty.")
			return
		}
		for _, hash := range hashes {
			blk, err := pool.Get(hash)
			if err != nil {
				fatal("load orphan %s: %v", hash, err)
			}
			fmt.Printf("%s  height %-8d parent %s\n", hash, blk.Header.Height, blk.Header.PrevHash)
		}

	case "remove":
		if fs.NArg() < 2 {
			fatal("Usage: cinder-cli pool remove <hash>")
		}
		hash, err := types.HexToHash(fs.Arg(1))
		if err != nil {
			fatal("invalid block hash: %v", err)
		}
		if err := pool.Remove(hash); err != nil {
			fatal("remove orphan: %v", err)
		}
		fmt.Printf("Removed %s\n", hash)

	default:
		fatal("unknown pool action %q (add, list, remove)", fs.Arg(0))
	}
}

// ── inspect ─────────────────────────────────────────────────────────────

func cmdInspect(args []string) {
	if len(args) < 1 {
		fatal("Usage: cinder-cli inspect <block.json>")
	}

	blk := readBlock(args[0])
	h := blk.Header

	fmt.Printf("Hash:      %s\n", blk.Hash())
	fmt.Printf("Height:    %d\n", h.Height)
	fmt.Printf("Version:   %d\n", h.Version)
	fmt.Printf("Prev:      %s\n", h.PrevHash)
	ts := time.Unix(int64(h.Timestamp), 0).UTC()
	fmt.Printf("Timestamp: %s\n", ts.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("Body:      %s\n", blk.Body.CountsString())
	fmt.Printf("Fees:      %d\n", blk.Body.TotalFees())
	if !h.AuxPow.IsEmpty() {
		fmt.Printf("Aux data:  %s (%d bytes)\n", h.AuxPow, h.AuxPow.Len())
	}
}

// ── decode-aux ──────────────────────────────────────────────────────────

func cmdDecodeAux(args []string) {
	if len(args) < 1 {
		fatal("Usage: cinder-cli decode-aux <hex>")
	}

	data, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
	if err != nil {
		fatal("invalid hex: %v", err)
	}

	r := bytes.NewReader(data)
	var fba types.FixedByteArray
	if err := fba.Decode(r); err != nil {
		fatal("decode: %v", err)
	}

	fmt.Printf("Length:   %d bytes\n", fba.Len())
	fmt.Printf("Payload:  %s\n", hex.EncodeToString(fba.AsSlice()))
	if trailing := r.Len(); trailing > 0 {
		fmt.Printf("Trailing: %d unread bytes\n", trailing)
	}
}
