// vehicle-client connects to vehicle hub and prints telemetry changes.
// Under systemd it reports readiness via sd_notify.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/beagley/hubclient/log2"
	"github.com/beagley/hubclient/state"
	"github.com/beagley/hubclient/tele"
	tele_config "github.com/beagley/hubclient/tele/config"
	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"github.com/temoto/alive/v2"
)

var log = log2.NewStderr(log2.LInfo)

func main() {
	flags := pflag.NewFlagSet("vehicle-client", pflag.ExitOnError)
	flagConfig := flags.StringP("config", "c", "", "config file, hcl")
	flagURL := flags.String("url", "", "hub websocket url, overrides config and $"+tele_config.EnvURL)
	flagDebug := flags.Bool("debug", false, "debug log level")
	_ = flags.Parse(os.Args[1:])

	if sdnotify("start") {
		// we're under systemd, assume systemd journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else if isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetFlags(log2.LInteractiveFlags)
	}

	var names []string
	if *flagConfig != "" {
		names = append(names, *flagConfig)
	}
	config := state.MustReadConfig(log, state.NewOsFullReader(), names...)
	config.Hub.ApplyEnv(os.Getenv)
	if *flagURL != "" {
		config.Hub.URL = *flagURL
	}
	if err := config.Validate(); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	level, _ := config.LogLevel()
	if *flagDebug {
		level = log2.LDebug
	}
	log.SetLevel(level)
	log.Debugf("config=%+v", config.Hub)

	store := state.NewStore()
	store.Subscribe(func(p state.Prop) {
		log.Printf("%s=%v", p.String(), store.Value(p))
	})

	client, err := tele.NewClient(tele.ClientOptions{
		Config: config.Hub,
		Log:    log,
		Store:  store,
	})
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	log.Printf("hub url=%s", client.URL())

	a := alive.NewAlive()
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sigch
		log.Printf("signal=%v, stopping", s)
		a.Stop()
	}()

	sdnotify(daemon.SdNotifyReady)
	<-a.StopChan()
	sdnotify(daemon.SdNotifyStopping)
	_ = client.Close()
	st := client.Stat()
	log.Printf("stopped %s", st.String())
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
