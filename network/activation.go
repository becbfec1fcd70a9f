package network

import (
	"context"
	"fmt"
	"time"

	"github.com/go-errors/errors"
	"github.com/juju/clock"
)

// State is one stage of a single activation. It only lives for the
// duration of one Activate call.
type State int

const (
	StateIdle State = iota
	StateConfigWritten
	StateServiceStopped
	StateServiceStarted
	StateLeaseAcquired
	StateFailed
	StateSucceeded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfigWritten:
		return "config written"
	case StateServiceStopped:
		return "service stopped"
	case StateServiceStarted:
		return "service started"
	case StateLeaseAcquired:
		return "lease acquired"
	case StateFailed:
		return "failed"
	case StateSucceeded:
		return "succeeded"
	default:
		return "invalid state"
	}
}

// Coarse failure reported for the step attempted in each state.
const (
	FailureWrite = "write error"
	FailureStop  = "stop error"
	FailureStart = "start error"
	FailureDhcp  = "DHCP error"
)

// ActivationError reports the state from which the failing step was
// attempted. Nothing is rolled back.
type ActivationError struct {
	Stage State
	Err   error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("%s: %v", e.PublicMessage(), e.Err)
}

func (e *ActivationError) Unwrap() error {
	return e.Err
}

func (e *ActivationError) PublicMessage() string {
	switch e.Stage {
	case StateIdle:
		return FailureWrite
	case StateConfigWritten:
		return FailureStop
	case StateServiceStopped:
		return FailureStart
	default:
		return FailureDhcp
	}
}

type ProfileWriter interface {
	WriteProfile(wifi *Wifi) error
}

type ActivationConfig struct {
	Profiles    ProfileWriter
	Services    ServiceManager
	Dhcp        DhcpClient
	Clock       clock.Clock
	Service     string
	Interface   string
	SettleDelay time.Duration
	Logger      Logger
}

// TransitionFunc observes every state change of an activation, including
// the final one into StateFailed or StateSucceeded.
type TransitionFunc func(from State, to State)

// Pipeline brings a wireless link up for a network profile: write the
// configuration, restart the supplicant with a settle delay after stop and
// after start, then acquire a DHCP lease. Overlapping activations are not
// coordinated here.
type Pipeline struct {
	profiles    ProfileWriter
	services    ServiceManager
	dhcp        DhcpClient
	clock       clock.Clock
	service     string
	iface       string
	settleDelay time.Duration
	log         Logger
}

const DefaultSettleDelay = time.Second

func NewPipeline(config *ActivationConfig) *Pipeline {
	p := &Pipeline{
		profiles:    config.Profiles,
		services:    config.Services,
		dhcp:        config.Dhcp,
		clock:       config.Clock,
		service:     config.Service,
		iface:       config.Interface,
		settleDelay: config.SettleDelay,
	}

	if p.clock == nil {
		p.clock = clock.WallClock
	}

	if p.settleDelay <= 0 {
		p.settleDelay = DefaultSettleDelay
	}

	if config.Logger != nil {
		p.log = config.Logger
	} else {
		p.log = noopLogger{}
	}

	return p
}

// Activate runs the pipeline to completion. Cancelling ctx does not stop
// it: once the service is stopped it must be started again. The returned
// error is an *ActivationError.
func (p *Pipeline) Activate(ctx context.Context, wifi *Wifi, observe TransitionFunc) error {
	ctx = context.WithoutCancel(ctx)

	if observe == nil {
		observe = func(State, State) {}
	}

	state := StateIdle

	for {
		next, err := p.step(ctx, state, wifi)
		if err != nil {
			p.log.Errorf("Activation failed in state %v: %v", state, err)
			observe(state, StateFailed)

			return &ActivationError{Stage: state, Err: err}
		}

		p.log.Debugf("Activation %v -> %v", state, next)
		observe(state, next)
		state = next

		if state == StateSucceeded {
			return nil
		}
	}
}

func (p *Pipeline) step(ctx context.Context, state State, wifi *Wifi) (State, error) {
	switch state {
	case StateIdle:
		err := p.profiles.WriteProfile(wifi)
		if err != nil {
			return StateFailed, err
		}

		return StateConfigWritten, nil
	case StateConfigWritten:
		err := p.services.Stop(ctx, p.service)
		if err != nil {
			return StateFailed, errors.Errorf("could not stop %v: %v", p.service, err)
		}

		return StateServiceStopped, nil
	case StateServiceStopped:
		// let the stopped service release the interface
		<-p.clock.After(p.settleDelay)

		err := p.services.Start(ctx, p.service)
		if err != nil {
			return StateFailed, errors.Errorf("could not start %v: %v", p.service, err)
		}

		return StateServiceStarted, nil
	case StateServiceStarted:
		// let the fresh service accept requests before asking for a lease
		<-p.clock.After(p.settleDelay)

		err := p.dhcp.Acquire(ctx, p.iface)
		if err != nil {
			return StateFailed, errors.Errorf("could not acquire lease on %v: %v", p.iface, err)
		}

		return StateLeaseAcquired, nil
	case StateLeaseAcquired:
		return StateSucceeded, nil
	default:
		return StateFailed, errors.Errorf("no transition from %v", state)
	}
}
