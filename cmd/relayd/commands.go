package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/urfave/cli/v2"
)

var (
	versionCmd = &cli.Command{
		Name:  "version",
		Usage: "Display version information",
		Action: func(ctx *cli.Context) error {
			fmt.Println(Version)
			return nil
		},
	}

	adminCmd = &cli.Command{
		Name:  "admin",
		Usage: "Manage a running relay through its admin api",
		Flags: []cli.Flag{urlFlag, callerFlag},
		Subcommands: cli.Commands{
			listAssetCmd,
			delistAssetCmd,
			addChainCmd,
			removeChainCmd,
			feesCmd,
			collectFeesCmd,
			setParamCmd,
			setFeeCollectorCmd,
			abortCmd,
			pauseCmd,
			unpauseCmd,
		},
	}

	listAssetCmd = &cli.Command{
		Name:   "list-asset",
		Usage:  "Add an asset to the registry",
		Flags:  []cli.Flag{nameFlag, symbolFlag, addressFlag("address of the asset")},
		Action: listAssetAction,
	}
	delistAssetCmd = &cli.Command{
		Name:   "delist-asset",
		Usage:  "Remove an asset from the registry",
		Flags:  []cli.Flag{addressFlag("address of the asset")},
		Action: delistAssetAction,
	}
	addChainCmd = &cli.Command{
		Name:   "add-chain",
		Usage:  "Add a chain to the supported ones",
		Flags:  []cli.Flag{nameFlag, chainIdFlag},
		Action: addChainAction,
	}
	removeChainCmd = &cli.Command{
		Name:   "remove-chain",
		Usage:  "Remove a chain from the supported ones",
		Flags:  []cli.Flag{chainIdFlag},
		Action: removeChainAction,
	}
	feesCmd = &cli.Command{
		Name:   "fees",
		Usage:  "Get the accrued fees of an asset",
		Flags:  []cli.Flag{assetFlag},
		Action: feesAction,
	}
	collectFeesCmd = &cli.Command{
		Name:   "collect-fees",
		Usage:  "Release the accrued fees of an asset to the fee collector",
		Flags:  []cli.Flag{assetFlag},
		Action: collectFeesAction,
	}
	setParamCmd = &cli.Command{
		Name:   "set-param",
		Usage:  "Update a relay parameter",
		Flags:  []cli.Flag{paramNameFlag, valueFlag},
		Action: setParamAction,
	}
	setFeeCollectorCmd = &cli.Command{
		Name:   "set-fee-collector",
		Usage:  "Update the account receiving the collected fees",
		Flags:  []cli.Flag{addressFlag("account of the fee collector")},
		Action: setFeeCollectorAction,
	}
	abortCmd = &cli.Command{
		Name:   "abort",
		Usage:  "Fail a pending transaction, refunding the sender of outbound ones",
		Flags:  []cli.Flag{txIdFlag, reasonFlag},
		Action: abortAction,
	}
	pauseCmd = &cli.Command{
		Name:   "pause",
		Usage:  "Stop accepting transfers and attestations",
		Action: pauseAction,
	}
	unpauseCmd = &cli.Command{
		Name:   "unpause",
		Usage:  "Resume accepting transfers and attestations",
		Action: unpauseAction,
	}
)

func listAssetAction(ctx *cli.Context) error {
	body := map[string]string{
		"name":    ctx.String(nameFlagName),
		"symbol":  ctx.String(symbolFlagName),
		"address": ctx.String(addressFlagName),
	}
	if _, err := callAdmin[any](ctx, "POST", "/assets", body); err != nil {
		return err
	}
	fmt.Printf("asset %s listed\n", ctx.String(addressFlagName))
	return nil
}

func delistAssetAction(ctx *cli.Context) error {
	address := ctx.String(addressFlagName)
	if _, err := callAdmin[any](
		ctx, "DELETE", "/assets/"+url.PathEscape(address), nil,
	); err != nil {
		return err
	}
	fmt.Printf("asset %s delisted\n", address)
	return nil
}

func addChainAction(ctx *cli.Context) error {
	body := map[string]any{
		"name":     ctx.String(nameFlagName),
		"chain_id": ctx.Uint64(chainIdFlagName),
	}
	if _, err := callAdmin[any](ctx, "POST", "/chains", body); err != nil {
		return err
	}
	fmt.Printf("chain %d added\n", ctx.Uint64(chainIdFlagName))
	return nil
}

func removeChainAction(ctx *cli.Context) error {
	chainId := ctx.Uint64(chainIdFlagName)
	if _, err := callAdmin[any](
		ctx, "DELETE", fmt.Sprintf("/chains/%d", chainId), nil,
	); err != nil {
		return err
	}
	fmt.Printf("chain %d removed\n", chainId)
	return nil
}

type feesResponse struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

func feesAction(ctx *cli.Context) error {
	asset := ctx.String(assetFlagName)
	res, err := callAdmin[feesResponse](ctx, "GET", "/fees/"+url.PathEscape(asset), nil)
	if err != nil {
		return err
	}
	fmt.Printf("accrued fees of %s: %d\n", res.Asset, res.Amount)
	return nil
}

func collectFeesAction(ctx *cli.Context) error {
	asset := ctx.String(assetFlagName)
	res, err := callAdmin[feesResponse](
		ctx, "POST", "/fees/"+url.PathEscape(asset)+"/collect", nil,
	)
	if err != nil {
		return err
	}
	fmt.Printf("collected %d of %s\n", res.Amount, res.Asset)
	return nil
}

func setParamAction(ctx *cli.Context) error {
	name := ctx.String(nameFlagName)
	body := map[string]uint64{"value": ctx.Uint64(valueFlagName)}
	if _, err := callAdmin[any](
		ctx, "PUT", "/settings/"+url.PathEscape(name), body,
	); err != nil {
		return err
	}
	fmt.Printf("%s updated to %d\n", name, ctx.Uint64(valueFlagName))
	return nil
}

func setFeeCollectorAction(ctx *cli.Context) error {
	body := map[string]string{"address": ctx.String(addressFlagName)}
	if _, err := callAdmin[any](ctx, "PUT", "/fee-collector", body); err != nil {
		return err
	}
	fmt.Printf("fee collector updated to %s\n", ctx.String(addressFlagName))
	return nil
}

func abortAction(ctx *cli.Context) error {
	txId := ctx.Uint64(txIdFlagName)
	body := map[string]string{"reason": ctx.String(reasonFlagName)}
	tx, err := callAdmin[json.RawMessage](ctx, "POST", fmt.Sprintf("/tx/%d/abort", txId), body)
	if err != nil {
		return err
	}
	return printJSON(tx)
}

func pauseAction(ctx *cli.Context) error {
	if _, err := callAdmin[any](ctx, "POST", "/pause", nil); err != nil {
		return err
	}
	fmt.Println("relay paused")
	return nil
}

func unpauseAction(ctx *cli.Context) error {
	if _, err := callAdmin[any](ctx, "POST", "/unpause", nil); err != nil {
		return err
	}
	fmt.Println("relay unpaused")
	return nil
}

func adminUrl(ctx *cli.Context, path string) string {
	baseUrl := strings.TrimSuffix(stringValue(ctx, urlFlagName), "/")
	return fmt.Sprintf("%s/v1/admin%s", baseUrl, path)
}
