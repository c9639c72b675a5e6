package main

import (
	"fmt"
	"time"

	"github.com/arkade-os/relayd/internal/config"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

const (
	urlFlagName     = "url"
	callerFlagName  = "caller"
	nameFlagName    = "name"
	symbolFlagName  = "symbol"
	addressFlagName = "address"
	assetFlagName   = "asset"
	chainIdFlagName = "chain-id"
	valueFlagName   = "value"
	txIdFlagName    = "id"
	reasonFlagName  = "reason"

	timeout = 15 * time.Second
)

var (
	urlFlag = &cli.StringFlag{
		Name:  urlFlagName,
		Usage: "the url where to reach the relayd admin api",
		Value: fmt.Sprintf("http://127.0.0.1:%d", config.DefaultAdminPort),
	}
	callerFlag = &cli.StringFlag{
		Name:  callerFlagName,
		Usage: "the identity making the request, checked against the relay roles",
	}
	nameFlag = &cli.StringFlag{
		Name:     nameFlagName,
		Usage:    "human readable name",
		Required: true,
	}
	symbolFlag = &cli.StringFlag{
		Name:     symbolFlagName,
		Usage:    "ticker symbol of the asset",
		Required: true,
	}
	addressFlag = func(usage string) *cli.StringFlag {
		return &cli.StringFlag{
			Name:     addressFlagName,
			Usage:    usage,
			Required: true,
		}
	}
	assetFlag = &cli.StringFlag{
		Name:     assetFlagName,
		Usage:    "address of the asset",
		Required: true,
	}
	chainIdFlag = &cli.Uint64Flag{
		Name:     chainIdFlagName,
		Usage:    "id of the chain",
		Required: true,
	}
	paramNameFlag = &cli.StringFlag{
		Name: nameFlagName,
		Usage: "name of the parameter, one of: transactionTimeout, feeBasisPoints, " +
			"hourlyTransactionLimit, requiredConfirmations, challengeThreshold",
		Required: true,
	}
	valueFlag = &cli.Uint64Flag{
		Name:     valueFlagName,
		Usage:    "new value of the parameter",
		Required: true,
	}
	txIdFlag = &cli.Uint64Flag{
		Name:     txIdFlagName,
		Usage:    "id of the transaction",
		Required: true,
	}
	reasonFlag = &cli.StringFlag{
		Name:  reasonFlagName,
		Usage: "reason of the abort, recorded in the transaction",
		Value: "aborted by operator",
	}
)

// stringValue gives precedence to the flag, then to the RELAYD_ prefixed env
// var, then to the flag default.
func stringValue(ctx *cli.Context, name string) string {
	if ctx.IsSet(name) {
		return ctx.String(name)
	}
	if value := viper.GetString(name); value != "" {
		return value
	}
	return ctx.String(name)
}
