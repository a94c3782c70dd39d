package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/mdouchement/creativespace/internal/app"
	"github.com/mdouchement/creativespace/internal/blob"
	"github.com/mdouchement/creativespace/internal/database"
	"github.com/mdouchement/creativespace/internal/localstore"
	"github.com/mdouchement/creativespace/internal/logger"
	"github.com/mdouchement/creativespace/internal/model"
	"github.com/mdouchement/creativespace/internal/server"
	"github.com/mdouchement/creativespace/internal/store"
	"github.com/mdouchement/creativespace/pkg/libcs"
	"github.com/mdouchement/creativespace/pkg/stormsql"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sanity-io/litter"
)

const (
	dbname   = "creativespace.db"
	slotname = "slots.cbor"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cfg string
)

func main() {
	c := &coral.Command{
		Use:     "creativespace",
		Short:   "Creative Space gallery backend",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    coral.ExactArgs(0),
	}

	for _, cmd := range []*coral.Command{initCmd, reindexCmd, serverCmd, purgeCmd, passwdCmd, inspectCmd, consoleCmd} {
		cmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
		c.AddCommand(cmd)
	}

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func load() (*koanf.Koanf, error) {
	konf := koanf.New(".")
	if err := konf.Load(file.Provider(cfg), yaml.Parser()); err != nil {
		return nil, errors.Wrap(err, "could not load configuration")
	}
	return konf, nil
}

func dbnameWithPath(path string) string {
	if len(path) == 0 {
		return dbname
	}
	return filepath.Join(path, dbname)
}

func slotnameWithPath(konf *koanf.Koanf) string {
	if path := konf.String("slot.path"); path != "" {
		return path
	}
	return filepath.Join(konf.String("database_path"), slotname)
}

// openStore opens the database for the offline commands.
func openStore() (*store.Store, func(), error) {
	konf, err := load()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.StormOpen(dbnameWithPath(konf.String("database_path")))
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not open database")
	}

	blobs := blob.NewRegistry().NewScope()
	return store.New(db, blobs), func() {
		blobs.Close()
		db.Close()
	}, nil
}

var (
	initCmd = &coral.Command{
		Use:   "init",
		Short: "Init the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := load()
			if err != nil {
				return err
			}

			return database.StormInit(dbnameWithPath(konf.String("database_path")))
		},
	}

	//
	reindexCmd = &coral.Command{
		Use:   "reindex",
		Short: "Reindex the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := load()
			if err != nil {
				return err
			}

			return database.StormReIndex(dbnameWithPath(konf.String("database_path")))
		},
	}

	//
	purgeCmd = &coral.Command{
		Use:   "purge EMAIL",
		Short: "Remove a user and all its media from the database",
		Args:  coral.ExactArgs(1),
		RunE: func(_ *coral.Command, args []string) error {
			s, closer, err := openStore()
			if err != nil {
				return err
			}
			defer closer()

			ids, err := s.DeleteUser(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("%d media removed\n", len(ids))
			fmt.Println("User removed")
			return nil
		},
	}

	//
	passwdCmd = &coral.Command{
		Use:   "passwd EMAIL",
		Short: "Reset the password of a user",
		Args:  coral.ExactArgs(1),
		RunE: func(_ *coral.Command, args []string) error {
			s, closer, err := openStore()
			if err != nil {
				return err
			}
			defer closer()

			if _, err = s.FindUser(args[0]); err != nil {
				return err
			}

			password, err := readline.Password("New password: ")
			if err != nil {
				return errors.Wrap(err, "could not read password")
			}
			confirmation, err := readline.Password("Confirm password: ")
			if err != nil {
				return errors.Wrap(err, "could not read password")
			}
			if string(password) != string(confirmation) {
				return errors.New("passwords do not match")
			}

			if err = s.SetPassword(args[0], string(password)); err != nil {
				return err
			}

			fmt.Println("Password updated")
			return nil
		},
	}

	//
	inspectCmd = &coral.Command{
		Use:   "inspect ID",
		Short: "Dump a media record",
		Args:  coral.ExactArgs(1),
		RunE: func(_ *coral.Command, args []string) error {
			s, closer, err := openStore()
			if err != nil {
				return err
			}
			defer closer()

			record, err := s.FindMediaRecord(args[0])
			if err != nil {
				return err
			}

			size := len(record.Payload)
			record.Payload = nil

			dumper := litter.Options{
				HideZeroValues:    true,
				StripPackageNames: true,
			}
			fmt.Println(dumper.Sdump(record))
			fmt.Printf("payload: %d bytes\n", size)
			return nil
		},
	}

	//
	consoleCmd = &coral.Command{
		Use:     "console SQL",
		Short:   "Run a SELECT statement against the database",
		Example: `creativespace console -c creativespace.yml "SELECT count(*) FROM media WHERE UserID = 'sarah@example.com' AND Likes > 100;"`,
		Args:    coral.ExactArgs(1),
		RunE: func(_ *coral.Command, args []string) error {
			sc, err := stormsql.ParseSelect(args[0])
			if err != nil {
				return err
			}

			konf, err := load()
			if err != nil {
				return err
			}

			db, err := database.StormOpen(dbnameWithPath(konf.String("database_path")))
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			v, err := db.Query(sc)
			if err != nil {
				return err
			}

			if sc.Count {
				fmt.Println("Count:", v)
				return nil
			}

			if records, ok := v.(*[]*model.MediaRecord); ok {
				for _, r := range *records {
					r.Payload = nil
				}
			}
			fmt.Println(litter.Options{HideZeroValues: true, StripPackageNames: true}.Sdump(v))
			return nil
		},
	}

	//
	//
	serverCmd = &coral.Command{
		Use:   "server",
		Short: "Start server",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := load()
			if err != nil {
				return err
			}

			l := logger.New(logger.Config{
				File:  konf.String("log.file"),
				Quiet: konf.Bool("log.quiet"),
				Level: konf.String("log.level"),
			})

			//
			// Stores
			//

			db, err := database.StormOpen(dbnameWithPath(konf.String("database_path")))
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			slot, err := localstore.Open(slotnameWithPath(konf), konf.Int("slot.quota"))
			if err != nil {
				return errors.Wrap(err, "could not open session slot")
			}

			//
			// Remote authentication
			//

			var auth libcs.Client
			if endpoint := konf.String("auth.endpoint"); endpoint != "" {
				timeout := konf.Duration("auth.timeout")
				if timeout <= 0 {
					timeout = 10 * time.Second
				}

				auth, err = libcs.NewClient(&http.Client{Timeout: timeout}, endpoint)
				if err != nil {
					return err
				}
				l.WithField("endpoint", endpoint).Info("remote authentication enabled")
			}

			//
			// Application
			//

			registry := blob.NewRegistry()
			blobs := registry.NewScope()
			inbox := app.NewInbox(64)
			a := app.New(app.Options{
				Store:  store.New(db, blobs),
				Blobs:  blobs,
				Slot:   slot,
				Auth:   auth,
				Logger: l,
				Notifier: app.NotifierFunc(func(n app.Notification) {
					l.WithField("type", n.Kind).Debug(n.Message)
					inbox.Notify(n)
				}),
			})
			if err = a.Load(); err != nil {
				l.Errorf("partial load: %s", err)
			}
			logger.Dump(l, a.Header())
			defer func() {
				if err := a.Close(); err != nil {
					l.Errorf("could not close application: %+v", err)
				}
				if n := registry.ReleaseAll(); n > 0 {
					l.Warnf("%d blob handles were still alive", n)
				}
			}()

			// Configure timed tasks
			quartz := cron.New(cron.WithLogger(cron.PrintfLogger(l)))
			scheduled, err := schedulePurge(quartz, konf.String("stories.purge"), a.PurgeStories, l)
			if err != nil {
				return err
			}
			if !scheduled {
				l.Info("expired stories purge is disabled")
			}
			quartz.Start()
			defer quartz.Stop()

			//
			// Server
			//

			engine := server.EchoEngine(server.IOC{
				Version:       version,
				App:           a,
				Inbox:         inbox,
				Logger:        l,
				MaxUploadSize: konf.String("upload.max_size"),
			})
			server.PrintRoutes(engine)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-quit
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := engine.Shutdown(ctx); err != nil {
					l.Errorf("could not shutdown server: %s", err)
				}
			}()

			address := konf.String("address")
			message := "could not run server"
			l.Infof("Server listening on %s", address)
			parts := strings.Split(address, ":")
			if len(parts) == 2 && parts[0] == "unix" {
				socketFile := parts[1]
				if _, err := os.Stat(socketFile); err == nil {
					l.Infof("Removing existing %s", socketFile)
					os.Remove(socketFile)
				}
				defer os.Remove(socketFile)
				listener, err := net.Listen(parts[0], socketFile)
				if err != nil {
					return err
				}
				return serve(engine.Server.Serve(listener), message)
			}
			return serve(engine.Start(address), message)
		},
	}
)

func serve(err error, message string) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrap(err, message)
}
