package fskv

import (
	"errors"
	"flag"

	"cairn.systems/objectstate/storage"
	"cairn.systems/objectstate/storage/kvregistry"
)

var flagDir *string

func init() {
	kvregistry.MustRegister(kvregistry.Backend{
		Name:        "fs",
		Description: "filesystem store (one file per record, sharded by address)",
		Usage:       kvregistry.UsageCLI | kvregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			flagDir = fs.String("fs-dir", "", "fs backend: root directory")
		},
		Open: func() (storage.KV, func() error, error) {
			if flagDir == nil || *flagDir == "" {
				return nil, nil, errors.New("fskv: -fs-dir is required")
			}
			kv, err := New(*flagDir)
			if err != nil {
				return nil, nil, err
			}
			return kv, nil, nil
		},
	})
}
