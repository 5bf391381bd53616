package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mailfold/mailfold/internal/config"
	"github.com/mailfold/mailfold/internal/db"
	"github.com/mailfold/mailfold/internal/engine"
	"github.com/mailfold/mailfold/internal/engine/memory"
	"github.com/mailfold/mailfold/internal/events"
	"github.com/mailfold/mailfold/internal/folders"
	"github.com/mailfold/mailfold/internal/gmail"
	"github.com/mailfold/mailfold/internal/services"
	"github.com/mailfold/mailfold/internal/version"
	"github.com/mailfold/mailfold/pkg/auth"
)

func main() {
	configPathFlag := flag.String("config", "", "Path to JSON configuration file (default: ~/.config/mailfold/config.json)")
	credPathFlag := flag.String("credentials", "", "Path to OAuth client credentials JSON")
	offlineFlag := flag.Bool("offline", false, "Use the in-memory engine with demo data instead of Gmail")
	watchFlag := flag.Bool("watch", false, "Keep running and reprint the folder list on changes")
	versionFlag := flag.Bool("version", false, "Show version information and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n\n", version.GetVersionString())
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s --offline          # Print the demo folder tree\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --watch            # Follow folder changes\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --config my.json   # Use custom configuration\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *versionFlag {
		fmt.Println(version.GetDetailedVersionString())
		return
	}

	configPath := *configPathFlag
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: could not load configuration: %v", err)
		cfg = config.DefaultConfig()
	}

	logger := initLogger(cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	defer bus.Close()

	var store *db.Store
	if cfg.StateDB != "" {
		store, err = db.Open(ctx, cfg.StateDB)
		if err != nil {
			log.Printf("Warning: could not open state database: %v", err)
		} else {
			defer store.Close()
		}
	}

	accounts := cfg.EngineAccounts()
	eng, accounts, err := buildEngine(ctx, cfg, bus, accounts, *credPathFlag, *offlineFlag)
	if err != nil {
		log.Fatalf("could not initialize mail engine: %v", err)
	}

	palette := config.DefaultPalette()
	if cfg.Palette != "" {
		if p, err := config.LoadPalette(cfg.Palette); err == nil {
			palette = p
		} else {
			log.Printf("Warning: %v", err)
		}
	}

	mode, err := cfg.ViewMode()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	accountID := cfg.DefaultAccount
	if mode == folders.ViewSingleAccount && accountID == 0 && len(accounts) > 0 {
		accountID = accounts[0].ID
	}

	changed := make(chan struct{}, 1)

	screenCfg := services.ScreenConfig{
		Engine:    eng,
		Bus:       bus,
		Accounts:  accounts,
		Colors:    cfg.AccountColors(palette),
		Mode:      mode,
		AccountID: accountID,
		Logger:    logger,
		OnResult: func(res services.MutationResult) {
			if res.Status == services.StatusSuccess {
				fmt.Printf("%s of %q completed\n", res.Kind, res.ResolvedDisplayName)
			} else {
				fmt.Printf("%s of %q failed: %v\n", res.Kind, res.ResolvedDisplayName, res.Err)
			}
		},
		OnTreeChange: func(folders.Change) {
			select {
			case changed <- struct{}{}:
			default:
			}
		},
	}
	if store != nil {
		screenCfg.Store = store
	}

	screen, err := services.NewScreen(screenCfg)
	if err != nil {
		log.Fatalf("could not create folder screen: %v", err)
	}

	if err := screen.Start(ctx); err != nil {
		log.Fatalf("could not start folder screen: %v", err)
	}
	defer screen.Close(context.Background())

	printRows(screen.Rows())

	if !*watchFlag {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			fmt.Println()
			printRows(screen.Rows())
		}
	}
}

// buildEngine picks the engine implementation. Without credentials (or with
// --offline) the in-memory engine is seeded with demo data so the screen is
// usable immediately.
func buildEngine(ctx context.Context, cfg *config.Config, bus *events.Bus, accounts []engine.Account, credFlag string, offline bool) (engine.Engine, []engine.Account, error) {
	if !offline && len(cfg.Accounts) > 0 {
		acct := cfg.Accounts[0]
		credPath := acct.Credentials
		if credFlag != "" {
			credPath = credFlag
		}
		if credPath != "" {
			service, err := auth.NewGmailService(ctx, credPath, acct.Token,
				"https://www.googleapis.com/auth/gmail.labels")
			if err != nil {
				return nil, nil, err
			}
			return gmail.NewClient(service, bus, acct.ID), accounts, nil
		}
	}

	eng := memory.New(bus)
	if len(accounts) == 0 {
		accounts = []engine.Account{{ID: 1, DisplayName: "Demo account", Protocol: engine.ProtocolIMAP}}
	}
	seedDemo(eng, accounts)
	return eng, accounts, nil
}

func seedDemo(eng *memory.Engine, accounts []engine.Account) {
	for _, acct := range accounts {
		eng.Seed(engine.MailboxRecord{AccountID: acct.ID, Name: "Inbox", Type: engine.MailboxInbox, UnreadCount: 4, TotalCount: 28, Selectable: true})
		eng.Seed(engine.MailboxRecord{AccountID: acct.ID, Name: "Drafts", Type: engine.MailboxDrafts, TotalCount: 2, Selectable: true})
		eng.Seed(engine.MailboxRecord{AccountID: acct.ID, Name: "Sent", Type: engine.MailboxSent, TotalCount: 120, Selectable: true})
		eng.Seed(engine.MailboxRecord{AccountID: acct.ID, Name: "Spam", Type: engine.MailboxSpam, TotalCount: 3, Selectable: true})
		eng.Seed(engine.MailboxRecord{AccountID: acct.ID, Name: "Trash", Type: engine.MailboxTrash, TotalCount: 9, Selectable: true})
		eng.Seed(engine.MailboxRecord{AccountID: acct.ID, Name: "Projects", Type: engine.MailboxUser, UnreadCount: 1, TotalCount: 14, Selectable: true})
		eng.Seed(engine.MailboxRecord{AccountID: acct.ID, Name: "Receipts", Type: engine.MailboxUser, TotalCount: 31, Selectable: true})
	}
	eng.SetFavouriteCounts(2, 6)
}

func printRows(rows []services.Row) {
	for _, row := range rows {
		indent := strings.Repeat("  ", row.Depth)

		marker := ""
		if row.Node.Kind == folders.KindAccountHeader || row.Node.Kind == folders.KindGroupHeader {
			if row.Node.Expanded {
				marker = "- "
			} else {
				marker = "+ "
			}
		}

		name := row.Node.DisplayAlias
		if name == "" {
			name = row.Node.Name
		}

		if row.Node.TotalCount > 0 {
			fmt.Printf("%s%s%s (%d/%d)\n", indent, marker, name, row.Node.UnreadCount, row.Node.TotalCount)
		} else {
			fmt.Printf("%s%s%s\n", indent, marker, name)
		}
	}
}

// initLogger opens the file logger configured in the config file, if any.
func initLogger(path string) *log.Logger {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("Warning: could not open log file: %v", err)
		return nil
	}
	return log.New(f, "[mailfold] ", log.LstdFlags|log.Lmicroseconds)
}
