package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kylerisse/metricstore/pkg/config"
	"github.com/kylerisse/metricstore/pkg/identifier"
	"github.com/kylerisse/metricstore/pkg/store"
	"github.com/spf13/cobra"
)

// keyFlags are the flags that address one stored value.
type keyFlags struct {
	runName        string
	runTime        string
	dataAssetName  string
	suite          string
	metric         string
	metricKwargsID string
	parameters     bool
}

func (k *keyFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&k.runName, "run-name", "", "run name")
	f.StringVar(&k.runTime, "run-time", "", "run time ("+identifier.RunTimeFormat+" or RFC 3339)")
	f.StringVar(&k.dataAssetName, "data-asset", "", "data asset name")
	f.StringVar(&k.suite, "suite", "", "expectation suite name")
	f.StringVar(&k.metric, "metric", "", "metric name")
	f.StringVar(&k.metricKwargsID, "kwargs-id", "", "metric kwargs id")
	f.BoolVar(&k.parameters, "parameters", false, "use the evaluation parameter store")
	cmd.MarkFlagRequired("run-time")
	cmd.MarkFlagRequired("suite")
	cmd.MarkFlagRequired("metric")
}

func (k *keyFlags) key() (identifier.ValidationMetricIdentifier, error) {
	runTime, err := identifier.ParseRunTime(k.runTime)
	if err != nil {
		return identifier.ValidationMetricIdentifier{}, err
	}
	return identifier.ValidationMetricIdentifier{
		RunID:                      identifier.NewRunIdentifier(k.runName, runTime),
		DataAssetName:              k.dataAssetName,
		ExpectationSuiteIdentifier: identifier.ExpectationSuiteIdentifier{Name: k.suite},
		MetricName:                 k.metric,
		MetricKwargsID:             k.metricKwargsID,
	}, nil
}

func (k *keyFlags) store(stores *config.Stores) *store.MetricStore {
	if k.parameters {
		return stores.Parameters.MetricStore
	}
	return stores.Metrics
}

func newGetCmd(a *app) *cobra.Command {
	var kf keyFlags

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the value stored under a key as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := kf.key()
			if err != nil {
				return err
			}
			stores, err := a.buildStores()
			if err != nil {
				return err
			}
			defer stores.Close()

			value, ok, err := kf.store(stores).Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no value stored for %v", key.ToTuple())
			}
			return printJSON(cmd.OutOrStdout(), value)
		},
	}
	kf.register(cmd)
	return cmd
}

func newSetCmd(a *app) *cobra.Command {
	var kf keyFlags

	cmd := &cobra.Command{
		Use:   "set <json-value>",
		Short: "Store a JSON value under a key",
		Example: `  metricstore set --run-name nightly --run-time 20240102T030405.000000Z \
    --suite orders --metric row_count 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := kf.key()
			if err != nil {
				return err
			}
			var value any
			if err := json.Unmarshal([]byte(args[0]), &value); err != nil {
				return fmt.Errorf("value must be JSON: %w", err)
			}
			stores, err := a.buildStores()
			if err != nil {
				return err
			}
			defer stores.Close()

			st := kf.store(stores)
			if err := st.Set(cmd.Context(), key, value); err != nil {
				return err
			}
			a.logger.Infof("Stored %s in %s.", args[0], st.Name())
			return nil
		},
	}
	kf.register(cmd)
	return cmd
}

func newBindParamsCmd(a *app) *cobra.Command {
	var runName, runTime string

	cmd := &cobra.Command{
		Use:   "bind-params",
		Short: "Print the evaluation parameters stored for a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ts, err := identifier.ParseRunTime(runTime)
			if err != nil {
				return err
			}
			stores, err := a.buildStores()
			if err != nil {
				return err
			}
			defer stores.Close()

			params, err := stores.Parameters.GetBindParams(cmd.Context(), identifier.NewRunIdentifier(runName, ts))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), params)
		},
	}
	cmd.Flags().StringVar(&runName, "run-name", "", "run name")
	cmd.Flags().StringVar(&runTime, "run-time", "", "run time ("+identifier.RunTimeFormat+" or RFC 3339)")
	cmd.MarkFlagRequired("run-time")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
