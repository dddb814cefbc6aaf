package sqlitekv

import (
	"errors"
	"flag"

	"cairn.systems/objectstate/storage"
	"cairn.systems/objectstate/storage/kvregistry"
)

var flagPath *string

func init() {
	kvregistry.MustRegister(kvregistry.Backend{
		Name:        "sqlite",
		Description: "SQLite store (single database file, WAL mode)",
		Usage:       kvregistry.UsageCLI | kvregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			flagPath = fs.String("sqlite-path", "", "sqlite backend: database file path")
		},
		Open: func() (storage.KV, func() error, error) {
			if flagPath == nil || *flagPath == "" {
				return nil, nil, errors.New("sqlitekv: -sqlite-path is required")
			}
			kv, err := Open(*flagPath)
			if err != nil {
				return nil, nil, err
			}
			return kv, kv.Close, nil
		},
	})
}
