package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/rpmkit/pkg/rpm"
)

// MetricsCmd returns the metrics command.
func MetricsCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("metrics", flag.ContinueOnError),
		Usage: "metrics",
		Short: "Print engine metrics in Prometheus text format",
		Long: `Print the guard's counters (config reads, macro definitions, cursors)
in the Prometheus text exposition format. Mostly useful from the shell,
where they accumulate across commands.`,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return writeMetrics(o)
		},
	}
}

func writeMetrics(o *IO) error {
	reg := prometheus.NewPedanticRegistry()

	for _, c := range rpm.Collectors() {
		err := reg.Register(c)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	for _, mf := range families {
		_, err := expfmt.MetricFamilyToText(o, mf)
		if err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	return nil
}
