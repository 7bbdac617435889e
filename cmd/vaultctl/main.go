// vaultctl is the operator tool for the vault: master key generation and
// verification, plus the global reveal kill-switch and disclosure duration.
package main

import (
	"context"
	"database/sql"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/stackdeck/credvault/internal/common"
	"github.com/stackdeck/credvault/internal/cryptox"
	"github.com/stackdeck/credvault/internal/server/config"
	"github.com/stackdeck/credvault/internal/server/repositories/repomanager"
	"golang.org/x/term"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const usage = `Usage: vaultctl <command> [options]

Commands:
  keygen [-passphrase]     generate a master key (random, or derived from a passphrase)
  verify-key -k <hex>      check that a key parses and performs a round trip
  reveals disable|enable   flip the global reveal kill-switch
  reveal-duration <sec>    set how long a revealed secret stays on screen
`

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = runKeygen(os.Args[2:])
	case "verify-key":
		err = runVerifyKey(os.Args[2:])
	case "reveals":
		err = runReveals(os.Args[2:])
	case "reveal-duration":
		err = runRevealDuration(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("vaultctl: %v", err)
	}
}

func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	passphrase := fs.Bool("passphrase", false, "derive the key from a passphrase instead of random bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*passphrase {
		key, err := common.MakeRandHexString(cryptox.MasterKeySize)
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	}

	fmt.Print("Enter passphrase: ")
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	fmt.Print("Confirm passphrase: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(pass) != string(confirm) {
		return fmt.Errorf("passphrases do not match")
	}

	saltHex, err := common.MakeRandHexString(16)
	if err != nil {
		return err
	}
	salt, _ := hex.DecodeString(saltHex)

	key := cryptox.DeriveMasterKey(pass, salt)
	defer common.WipeByteArray(key)

	fmt.Printf("key:  %s\n", hex.EncodeToString(key))
	fmt.Printf("salt: %s\n", saltHex)
	return nil
}

func runVerifyKey(args []string) error {
	fs := flag.NewFlagSet("verify-key", flag.ExitOnError)
	keyHex := fs.String("k", "", "hex-encoded master key (prompted without echo when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *keyHex == "" {
		fmt.Print("Enter master key: ")
		entered, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return err
		}
		*keyHex = string(entered)
		common.WipeByteArray(entered)
	}

	key, err := cryptox.ParseMasterKey(*keyHex)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)

	engine, err := cryptox.NewEngine(key)
	if err != nil {
		return err
	}

	probe, err := common.MakeRandHexString(16)
	if err != nil {
		return err
	}
	ciphertext, iv, err := engine.Encrypt(probe)
	if err != nil {
		return err
	}
	got, err := engine.Decrypt(ciphertext, iv)
	if err != nil {
		return err
	}
	if got != probe {
		return fmt.Errorf("round trip mismatch")
	}

	fmt.Println("OK")
	return nil
}

func runReveals(args []string) error {
	if len(args) != 1 || (args[0] != "disable" && args[0] != "enable") {
		return fmt.Errorf("usage: vaultctl reveals disable|enable")
	}

	return updateSettings(func(disabled *bool, _ *int) {
		*disabled = args[0] == "disable"
	})
}

func runRevealDuration(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: vaultctl reveal-duration <seconds>")
	}
	seconds, err := strconv.Atoi(args[0])
	if err != nil || seconds < 5 || seconds > 3600 {
		return fmt.Errorf("duration must be between 5 and 3600 seconds")
	}

	return updateSettings(func(_ *bool, duration *int) {
		*duration = seconds
	})
}

// updateSettings reads the settings row, applies the mutation and writes it
// back. The server picks the change up on the next reveal decision.
func updateSettings(mutate func(disabled *bool, duration *int)) error {
	ctx := context.Background()
	cfg := config.LoadConfig()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	repo := repomanager.NewPostgresRepositoryManager().Settings(db)

	settings, err := repo.Get(ctx)
	if err != nil {
		return err
	}

	mutate(&settings.GlobalRevealDisabled, &settings.RevealDurationSeconds)

	if err := repo.Update(ctx, settings); err != nil {
		return err
	}

	fmt.Printf("reveals disabled: %v, duration: %ds\n",
		settings.GlobalRevealDisabled, settings.RevealDurationSeconds)
	return nil
}
