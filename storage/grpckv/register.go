package grpckv

import (
	"errors"
	"flag"
	"time"

	"cairn.systems/objectstate/storage"
	"cairn.systems/objectstate/storage/kvregistry"
)

var (
	flagTarget  *string
	flagTimeout *time.Duration
)

func init() {
	kvregistry.MustRegister(kvregistry.Backend{
		Name:        "grpc",
		Description: "remote store via a cairn-kvgrpcd daemon",
		Usage:       kvregistry.UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			flagTarget = fs.String("grpc-target", "", "grpc backend: daemon address (host:port)")
			flagTimeout = fs.Duration("grpc-timeout", 5*time.Second, "grpc backend: per-RPC timeout")
		},
		Open: func() (storage.KV, func() error, error) {
			if flagTarget == nil || *flagTarget == "" {
				return nil, nil, errors.New("grpckv: -grpc-target is required")
			}
			client, err := Dial(*flagTarget, DialOptions{Timeout: *flagTimeout})
			if err != nil {
				return nil, nil, err
			}
			client.Timeout = *flagTimeout
			return client, client.Close, nil
		},
	})
}
