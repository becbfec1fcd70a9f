package api

import (
	"context"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/wifid/adapter"
	"github.com/the-lightning-land/wifid/protocol"
)

func requireEnable(cmd *protocol.Command) (bool, error) {
	if cmd.Enable == nil {
		return false, protocol.Fail(protocol.FailureInvalid, errors.New("missing enable"))
	}

	return *cmd.Enable, nil
}

// Handlers binds every operation to the adapter.
func Handlers(a *adapter.Adapter) map[protocol.Operation]HandlerFunc {
	return map[protocol.Operation]HandlerFunc{
		protocol.SetWifiEnabled: func(ctx context.Context, cmd *protocol.Command) (interface{}, error) {
			enable, err := requireEnable(cmd)
			if err != nil {
				return nil, err
			}

			return nil, a.SetWifiEnabled(ctx, enable)
		},
		protocol.GetNetworks: func(ctx context.Context, cmd *protocol.Command) (interface{}, error) {
			return a.Networks(ctx)
		},
		protocol.GetKnownNetworks: func(ctx context.Context, cmd *protocol.Command) (interface{}, error) {
			return a.KnownNetworks(ctx)
		},
		protocol.Associate: func(ctx context.Context, cmd *protocol.Command) (interface{}, error) {
			err := a.Associate(ctx, cmd.Network)
			if err != nil {
				return nil, err
			}

			return true, nil
		},
		protocol.Forget: func(ctx context.Context, cmd *protocol.Command) (interface{}, error) {
			return nil, a.Forget(ctx, cmd.Network)
		},
		protocol.Wps: func(ctx context.Context, cmd *protocol.Command) (interface{}, error) {
			return nil, a.Wps(ctx, cmd.Detail)
		},
		protocol.SetPowerSavingMode: func(ctx context.Context, cmd *protocol.Command) (interface{}, error) {
			enable, err := requireEnable(cmd)
			if err != nil {
				return nil, err
			}

			return nil, a.SetPowerSavingMode(ctx, enable)
		},
		protocol.SetStaticIpMode: func(ctx context.Context, cmd *protocol.Command) (interface{}, error) {
			info, err := cmd.IpConfig()
			if err != nil {
				return nil, protocol.Fail(protocol.FailureInvalid, err)
			}

			return nil, a.SetStaticIpMode(ctx, cmd.Network, info)
		},
		protocol.SetHttpProxy: func(ctx context.Context, cmd *protocol.Command) (interface{}, error) {
			info, err := cmd.ProxyInfo()
			if err != nil {
				return nil, protocol.Fail(protocol.FailureInvalid, err)
			}

			return nil, a.SetHttpProxy(ctx, cmd.Network, info)
		},
		protocol.ImportCert: func(ctx context.Context, cmd *protocol.Command) (interface{}, error) {
			return a.ImportCert(ctx, cmd.CertBlob, cmd.CertPassword, cmd.CertNickname)
		},
		protocol.GetImportedCerts: func(ctx context.Context, cmd *protocol.Command) (interface{}, error) {
			return a.ImportedCerts(ctx)
		},
		protocol.DeleteCert: func(ctx context.Context, cmd *protocol.Command) (interface{}, error) {
			return nil, a.DeleteCert(ctx, cmd.CertNickname)
		},
	}
}
