package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hamed0406/slotwatch/internal/notify"
	"github.com/hamed0406/slotwatch/internal/probe"
)

func newPreflightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check configuration, sound playback and DNS without polling",
		Args:  cobra.NoArgs,
		RunE:  runPreflight,
	}
}

// nil uses the OS resolver
var dnsResolver probe.Resolver

var errPreflight = errors.New("preflight failed")

func runPreflight(cmd *cobra.Command, _ []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(errOut, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(errOut, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(out, "✔", msg) }

	cfg, err := loadConfig(cmd)
	if err != nil {
		fail(err.Error())
		return errPreflight
	}
	ok(cfg.WindowDesc)
	ok(fmt.Sprintf("locations=%v interval=%s request_timeout=%s", cfg.Locations, cfg.Interval, cfg.RequestTimeout))

	if _, err := os.Stat(cfg.SoundPath); err != nil {
		fail("sound file: " + err.Error())
	} else {
		ok("sound file " + cfg.SoundPath)
	}
	if argv, err := notify.NewSound(cfg.SoundPath, cfg.SoundPlayer).Command(); err != nil {
		fail("sound player: " + err.Error())
	} else {
		ok(fmt.Sprintf("sound player %q", argv[0]))
	}

	if cfg.SlackWebhook == "" {
		warn("slack webhook not set; alerts are sound only")
	} else {
		ok("slack webhook present")
	}
	if cfg.StatusAddr == "" {
		warn("status_addr empty; /healthz, /metrics and /api/status are disabled")
	} else {
		ok("status_addr=" + cfg.StatusAddr)
	}

	checkDNS(cmd, probe.EndpointHost(cfg.Endpoint), ok, warn, fail)

	if failed {
		return errPreflight
	}
	ok("preflight passed")
	return nil
}

func checkDNS(cmd *cobra.Command, host string, ok, warn, fail func(string)) {
	st := probe.CheckDNS(cmd.Context(), dnsResolver, host)
	switch st.Class {
	case probe.DNSResolves:
		ok(fmt.Sprintf("dns %s -> %v", host, st.IPs))
	case probe.DNSNoARecord:
		warn(fmt.Sprintf("dns %s resolved without addresses", host))
	default:
		fail(fmt.Sprintf("dns %s: %s %s", host, st.Class, st.ResolverError))
	}
}
