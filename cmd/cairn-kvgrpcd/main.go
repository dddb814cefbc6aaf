package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"cairn.systems/objectstate/storage"
	"cairn.systems/objectstate/storage/grpckv"
	"cairn.systems/objectstate/storage/kvconfig"
	"cairn.systems/objectstate/storage/kvregistry"

	_ "cairn.systems/objectstate/storage/fskv"
	_ "cairn.systems/objectstate/storage/memkv"
	_ "cairn.systems/objectstate/storage/sqlitekv"
)

func main() {
	fs := flag.NewFlagSet("cairn-kvgrpcd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	backend := fs.String("backend", "mem", "KV backend name")
	configPath := fs.String("config", "", "Backend config file (JSON); overrides -backend")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	debug := fs.Bool("debug", false, "Enable debug logging")

	kvregistry.RegisterFlags(fs, kvregistry.UsageDaemon)

	_ = fs.Parse(os.Args[1:])
	if *listBackends {
		for _, b := range kvregistry.List(kvregistry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	var (
		kv      storage.KV
		closeFn func() error
		err     error
		source  = *backend
	)
	if *configPath != "" {
		var cfg kvconfig.Config
		cfg, err = kvconfig.LoadFile(*configPath)
		if err == nil {
			kv, closeFn, err = cfg.Open(kvregistry.UsageDaemon, "")
		}
		source = *configPath
	} else {
		kv, closeFn, err = kvregistry.Open(*backend, kvregistry.UsageDaemon)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if closeFn != nil {
		defer func() { _ = closeFn() }()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		log.WithError(err).Error("listen")
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpckv.RegisterKVServer(s, &grpckv.Server{KV: kv})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		got := <-sig
		log.WithField("signal", got.String()).Info("shutting down")
		s.GracefulStop()
	}()

	log.WithFields(log.Fields{
		"addr":    lis.Addr().String(),
		"backend": source,
	}).Info("cairn-kvgrpcd listening")
	if err := s.Serve(lis); err != nil {
		log.WithError(err).Error("serve")
		os.Exit(1)
	}
}
