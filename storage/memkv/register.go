package memkv

import (
	"flag"

	"cairn.systems/objectstate/storage"
	"cairn.systems/objectstate/storage/kvregistry"
)

func init() {
	kvregistry.MustRegister(kvregistry.Backend{
		Name:        "mem",
		Description: "volatile in-process store (records vanish on exit)",
		Usage:       kvregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			// No flags: the store has no configuration surface.
			_ = fs
		},
		Open: func() (storage.KV, func() error, error) {
			return New(), nil, nil
		},
	})
}
