package network

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/go-errors/errors"
)

// Runner executes an external program and only reports whether it succeeded.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs programs on the local host.
type ExecRunner struct {
	Log Logger
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	log := r.Log
	if log == nil {
		log = noopLogger{}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	log.Debugf("Running %v %v", name, strings.Join(args, " "))

	err := cmd.Run()
	if err != nil {
		log.Debugf("%v failed: %v: %s", name, err, bytes.TrimSpace(output.Bytes()))

		if exitErr, ok := err.(*exec.ExitError); ok {
			return errors.Errorf("%v exited with code %d", name, exitErr.ExitCode())
		}

		return errors.Errorf("could not run %v: %v", name, err)
	}

	return nil
}

// NoopRunner only logs the programs it is asked to run. It pairs with
// MockNetwork so a development host is never reconfigured.
type NoopRunner struct {
	Log Logger
}

func (r *NoopRunner) Run(_ context.Context, name string, args ...string) error {
	if r.Log != nil {
		r.Log.Infof("Skipping %v %v", name, strings.Join(args, " "))
	}

	return nil
}

func run(ctx context.Context, runner Runner, command []string, args ...string) error {
	if len(command) == 0 {
		return errors.New("no command configured")
	}

	return runner.Run(ctx, command[0], append(append([]string{}, command[1:]...), args...)...)
}

// ServiceManager stops and starts a named OS service.
type ServiceManager interface {
	Stop(ctx context.Context, service string) error
	Start(ctx context.Context, service string) error
}

// ServiceControl drives services through the init system's stop and start
// commands, for example /system/bin/stop or "systemctl stop".
type ServiceControl struct {
	Runner       Runner
	StopCommand  []string
	StartCommand []string
}

var _ ServiceManager = (*ServiceControl)(nil)

func (s *ServiceControl) Stop(ctx context.Context, service string) error {
	return run(ctx, s.Runner, s.StopCommand, service)
}

func (s *ServiceControl) Start(ctx context.Context, service string) error {
	return run(ctx, s.Runner, s.StartCommand, service)
}

// DhcpClient acquires an IP lease for an interface.
type DhcpClient interface {
	Acquire(ctx context.Context, iface string) error
}

type Dhcpcd struct {
	Runner  Runner
	Command []string
}

var _ DhcpClient = (*Dhcpcd)(nil)

func (d *Dhcpcd) Acquire(ctx context.Context, iface string) error {
	return run(ctx, d.Runner, d.Command, iface)
}

// Link configures the wireless interface itself through ip(8) and iw(8).
type Link struct {
	Runner     Runner
	Interface  string
	Ip         string
	Iw         string
	ResolvConf string
	Dhcp       DhcpClient
}

func (l *Link) SetEnabled(ctx context.Context, enable bool) error {
	state := "down"
	if enable {
		state = "up"
	}

	return l.Runner.Run(ctx, l.Ip, "link", "set", l.Interface, state)
}

func (l *Link) SetPowerSave(ctx context.Context, enable bool) error {
	state := "off"
	if enable {
		state = "on"
	}

	return l.Runner.Run(ctx, l.Iw, "dev", l.Interface, "set", "power_save", state)
}

// SetIpConfig applies a static address, or falls back to DHCP when the
// configuration is disabled.
func (l *Link) SetIpConfig(ctx context.Context, cfg *IpConfig) error {
	if !cfg.Enabled {
		return l.Dhcp.Acquire(ctx, l.Interface)
	}

	if cfg.IpAddr == "" || cfg.MaskLength <= 0 || cfg.MaskLength > 32 {
		return errors.Errorf("invalid address %v/%v", cfg.IpAddr, cfg.MaskLength)
	}

	err := l.Runner.Run(ctx, l.Ip, "addr", "flush", "dev", l.Interface)
	if err != nil {
		return err
	}

	err = l.Runner.Run(ctx, l.Ip, "addr", "add", fmt.Sprintf("%s/%d", cfg.IpAddr, cfg.MaskLength), "dev", l.Interface)
	if err != nil {
		return err
	}

	if cfg.Gateway != "" {
		err = l.Runner.Run(ctx, l.Ip, "route", "replace", "default", "via", cfg.Gateway, "dev", l.Interface)
		if err != nil {
			return err
		}
	}

	if l.ResolvConf != "" && (cfg.Dns1 != "" || cfg.Dns2 != "") {
		var b strings.Builder
		for _, dns := range []string{cfg.Dns1, cfg.Dns2} {
			if dns != "" {
				fmt.Fprintf(&b, "nameserver %s\n", dns)
			}
		}

		err = os.WriteFile(l.ResolvConf, []byte(b.String()), 0644)
		if err != nil {
			return errors.Errorf("could not write %v: %v", l.ResolvConf, err)
		}
	}

	return nil
}
