package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"salon-ledger/internal/config"
	"salon-ledger/internal/ledger"
	"salon-ledger/internal/storage"

	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("addemployee", flag.ContinueOnError)
	fs.SetOutput(stderr)

	name := fs.String("name", "", "Employee name")
	position := fs.String("position", "", "Job position")
	percentage := fs.Float64("percentage", 0, "Commission percentage of income (0-100)")
	keyFlag := fs.String("key", "", "Login key (optional, will prompt if omitted)")
	configPath := fs.String("config", "", "Path to config file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		fmt.Fprintln(stdout, "Usage: addemployee -name <name> [-position <position>] [-percentage <pct>] [-key <login_key>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: name")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	key := *keyFlag
	if key == "" {
		fmt.Fprint(stdout, "Login key: ")
		key, err = readKey(stdin)
		if err != nil {
			return fmt.Errorf("failed to read login key: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	key = strings.TrimSpace(key)

	db, err := storage.NewDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	svc := ledger.NewService(db, cfg.Auth.OwnerKey)
	if err := svc.ValidateEmployeeKey(key, 0); err != nil {
		return err
	}
	if *percentage < 0 || *percentage > 100 {
		return fmt.Errorf("percentage must be between 0 and 100")
	}

	e, err := db.CreateEmployee(*name, *position, *percentage, key)
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}

	fmt.Fprintf(stdout, "Employee %s created successfully with ID %d\n", e.Name, e.ID)
	return nil
}

func readKey(stdin io.Reader) (string, error) {
	// Hide the key when reading from a terminal.
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
