package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"certlink/internal/domain/account"
	"certlink/internal/domain/certificate"
	"certlink/internal/domain/client"
	"certlink/internal/domain/operator"
	"certlink/internal/domain/workspace"
	"certlink/internal/infrastructure/registrar"
	"certlink/internal/infrastructure/sqlstore"
	"certlink/internal/shared/auth"
	"certlink/internal/shared/config"
	"certlink/internal/shared/fixtures"
	"certlink/internal/shared/logger"
)

const usage = `certlink Admin CLI - Management commands for the certlink API

Usage:
  admin <command> [options]

Commands:
  hash-password        Print the bcrypt hash of a password read from stdin
  seed                 Load clients, certificates, accounts and operators from a YAML file
  expiring             List certificates expiring within a number of days
  delete-certificate   Delete a certificate after an interactive confirmation

Examples:
  # Hash a password for an operator row
  echo -n 's3cret' | admin hash-password

  # Seed the embedded development data
  admin seed

  # Seed from a file
  admin seed --file=fixtures.yaml

  # Certificates expiring in the next 60 days, all clients
  admin expiring --days=60

  # Delete a certificate (asks for y/N)
  admin delete-certificate --id=cert-1
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	if err := logger.Init(os.Getenv("LOG_LEVEL"), "console"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid LOG_LEVEL: %v\n", err)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "hash-password":
		runHashPassword(os.Stdin, os.Stdout)
	case "seed":
		runSeed(os.Args[2:])
	case "expiring":
		runExpiring(os.Args[2:])
	case "delete-certificate":
		runDeleteCertificate(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}
}

func runHashPassword(in io.Reader, out io.Writer) {
	password, err := readPassword(in)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read password")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}
	fmt.Fprintln(out, hash)
}

// readPassword reads the first line of in, without its line ending
func readPassword(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", operator.ErrPasswordRequired
	}
	return password, nil
}

// openStore loads configuration and connects to the migrated database
func openStore(ctx context.Context) (*config.Config, *sqlstore.DB) {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	db, err := sqlstore.Open(cfg.Storage.Driver, cfg.Storage.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	log.Info().Str("driver", db.Driver()).Msg("Connected to database")
	return cfg, db
}

func runSeed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	file := fs.String("file", "", "YAML fixtures file (default: embedded sample data)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, db := openStore(ctx)
	defer db.Close()

	path := *file
	if path == "" {
		path = cfg.Storage.SeedFile
	}
	set, err := fixtures.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load fixtures")
	}

	operators := operator.NewService(sqlstore.NewOperatorRepository(db), auth.Bcrypt{}, auth.NewDomainAllowList(cfg.Auth.AllowedDomains))
	err = fixtures.Seed(ctx, set, fixtures.Stores{
		Clients:      sqlstore.NewClientRepository(db),
		Certificates: sqlstore.NewCertificateRepository(db),
		Accounts:     account.NewService(sqlstore.NewAccountRepository(db)),
		Operators:    operators,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}
	fmt.Println("Seed complete")
}

func runExpiring(args []string) {
	fs := flag.NewFlagSet("expiring", flag.ExitOnError)
	days := fs.Int("days", 30, "Look-ahead window in days")
	clientID := fs.String("client-id", "", "Restrict to one client")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *days < 1 {
		fmt.Println("Error: --days must be at least 1")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, db := openStore(ctx)
	defer db.Close()

	clients := client.NewService(sqlstore.NewClientRepository(db))
	certs := newCertificateService(cfg, db)

	var ids []string
	if *clientID != "" {
		ids = []string{*clientID}
	} else {
		all, err := clients.ListClients(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list clients")
		}
		for _, c := range all {
			ids = append(ids, c.ID)
		}
	}

	now := time.Now()
	window := time.Duration(*days) * 24 * time.Hour
	total := 0
	for _, id := range ids {
		list, err := certs.ListExpiring(ctx, id, window)
		if err != nil {
			log.Fatal().Err(err).Str("client_id", id).Msg("Failed to list expiring certificates")
		}
		for _, c := range list {
			printExpiring(os.Stdout, c, now)
			total++
		}
	}
	fmt.Printf("\n%d certificate(s) expiring within %d day(s)\n", total, *days)
}

func printExpiring(w io.Writer, c *certificate.Certificate, now time.Time) {
	status := fmt.Sprintf("in %d day(s)", int(c.ExpiresAt.Sub(now).Hours()/24))
	if c.IsExpired(now) {
		status = "EXPIRED"
	}
	fmt.Fprintf(w, "%-40s client=%-6s %-30s expires=%s (%s)\n",
		c.ID, c.ClientID, c.Name, c.ExpiresAt.Format("2006-01-02"), status)
}

func runDeleteCertificate(args []string) {
	fs := flag.NewFlagSet("delete-certificate", flag.ExitOnError)
	id := fs.String("id", "", "Certificate ID")
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *id == "" {
		fmt.Println("Error: must specify --id")
		fs.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cfg, db := openStore(ctx)
	defer db.Close()

	var confirmer workspace.Confirmer = promptConfirmer{in: bufio.NewReader(os.Stdin), out: os.Stdout}
	if *yes {
		confirmer = workspace.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
	}

	deleted, unlinked, err := deleteCertificate(ctx, newCertificateService(cfg, db), *id, confirmer)
	if err != nil {
		log.Fatal().Err(err).Str("certificate_id", *id).Msg("Delete failed")
	}
	if !deleted {
		fmt.Println("Aborted")
		return
	}
	fmt.Printf("Deleted %s, unlinked %d account(s)\n", *id, len(unlinked))
}

// CertificateDeleter removes a certificate and reports the accounts it unlinked
type CertificateDeleter interface {
	DeleteCertificate(ctx context.Context, id string) ([]string, error)
}

// deleteCertificate asks for confirmation and deletes; a declined prompt changes nothing
func deleteCertificate(ctx context.Context, certs CertificateDeleter, id string, confirmer workspace.Confirmer) (bool, []string, error) {
	ok, err := confirmer.Confirm(ctx, fmt.Sprintf("Delete certificate %s and unlink its accounts?", id))
	if err != nil || !ok {
		return false, nil, err
	}
	unlinked, err := certs.DeleteCertificate(ctx, id)
	if err != nil {
		return false, nil, err
	}
	return true, unlinked, nil
}

func newCertificateService(cfg *config.Config, db *sqlstore.DB) *certificate.Service {
	return certificate.NewService(sqlstore.NewCertificateRepository(db), registrar.Stub{}, certificate.Defaults{
		Issuer:   cfg.Registrar.DefaultIssuer,
		Validity: cfg.Registrar.CertificateValidity(),
	})
}

// promptConfirmer asks on a terminal; only y or yes confirms
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
