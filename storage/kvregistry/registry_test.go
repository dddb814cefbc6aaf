package kvregistry_test

import (
	"flag"
	"strings"
	"testing"

	"cairn.systems/objectstate/storage"
	"cairn.systems/objectstate/storage/kvregistry"
	"cairn.systems/objectstate/storage/memkv"
)

func fakeBackend(name string, usage kvregistry.Usage) (kvregistry.Backend, *string) {
	mode := new(string)
	return kvregistry.Backend{
		Name:        name,
		Description: "test backend",
		Usage:       usage,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(mode, name+"-mode", "default", "test flag")
		},
		Open: func() (storage.KV, func() error, error) {
			return memkv.New(), nil, nil
		},
	}, mode
}

func TestRegisterValidation(t *testing.T) {
	if err := kvregistry.Register(kvregistry.Backend{}); err == nil {
		t.Fatalf("Register accepted empty backend")
	}
	b, _ := fakeBackend("reg-valid", kvregistry.UsageCLI)
	b.Open = nil
	if err := kvregistry.Register(b); err == nil {
		t.Fatalf("Register accepted backend without Open")
	}
	b, _ = fakeBackend("reg-valid", kvregistry.UsageCLI)
	b.Usage = 0
	if err := kvregistry.Register(b); err == nil {
		t.Fatalf("Register accepted backend without Usage")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	b, _ := fakeBackend("reg-dup", kvregistry.UsageCLI)
	if err := kvregistry.Register(b); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := kvregistry.Register(b); err == nil {
		t.Fatalf("Register accepted duplicate name")
	}
}

func TestListFiltersByUsage(t *testing.T) {
	cli, _ := fakeBackend("reg-list-cli", kvregistry.UsageCLI)
	daemon, _ := fakeBackend("reg-list-daemon", kvregistry.UsageDaemon)
	kvregistry.MustRegister(cli)
	kvregistry.MustRegister(daemon)

	names := kvregistry.Names(kvregistry.UsageCLI)
	var sawCLI, sawDaemon bool
	for _, n := range names {
		if n == "reg-list-cli" {
			sawCLI = true
		}
		if n == "reg-list-daemon" {
			sawDaemon = true
		}
	}
	if !sawCLI {
		t.Fatalf("CLI listing missed CLI backend: %v", names)
	}
	if sawDaemon {
		t.Fatalf("CLI listing leaked daemon backend: %v", names)
	}
	for i := 1; i < len(names); i++ {
		if strings.Compare(names[i-1], names[i]) > 0 {
			t.Fatalf("Names not sorted: %v", names)
		}
	}
}

func TestOpenUnknownAndWrongUsage(t *testing.T) {
	if _, _, err := kvregistry.Open("reg-nope", kvregistry.UsageCLI); err == nil {
		t.Fatalf("Open accepted unknown backend")
	}
	b, _ := fakeBackend("reg-daemon-only", kvregistry.UsageDaemon)
	kvregistry.MustRegister(b)
	if _, _, err := kvregistry.Open("reg-daemon-only", kvregistry.UsageCLI); err == nil {
		t.Fatalf("Open accepted backend outside its usage")
	}
}

func TestOpenWithConfigSetsFlags(t *testing.T) {
	b, mode := fakeBackend("reg-cfg", kvregistry.UsageCLI)
	kvregistry.MustRegister(b)

	kv, closeFn, err := kvregistry.OpenWithConfig("reg-cfg", kvregistry.UsageCLI, map[string]string{"reg-cfg-mode": "tuned"})
	if err != nil {
		t.Fatalf("OpenWithConfig: %v", err)
	}
	if closeFn != nil {
		defer closeFn()
	}
	if kv == nil {
		t.Fatalf("OpenWithConfig returned nil KV")
	}
	if *mode != "tuned" {
		t.Fatalf("config value not applied: %q", *mode)
	}

	if _, _, err := kvregistry.OpenWithConfig("reg-cfg", kvregistry.UsageCLI, map[string]string{"no-such-flag": "x"}); err == nil {
		t.Fatalf("OpenWithConfig accepted unknown config key")
	}
}
