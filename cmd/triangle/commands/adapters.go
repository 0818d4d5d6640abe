package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gogpu/frameloop/driver"
	"github.com/gogpu/frameloop/internal/config"
)

func newAdaptersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adapters",
		Short: "List the adapters of the configured driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			f, err := newFactory(c.Graphics, nil)
			if err != nil {
				return err
			}
			defer f.Release()

			adapters, err := f.Adapters()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "DRIVER\tNAME\tVRAM\tSOFTWARE\n")
			for _, a := range adapters {
				printAdapter(w, f.Name(), a.Info())
			}
			if warp, err := f.WarpAdapter(); err == nil {
				printAdapter(w, f.Name()+" (warp)", warp.Info())
			}
			return w.Flush()
		},
	}
	d := config.Default()
	cmd.Flags().String("driver", d.Graphics.Driver, `GPU driver, "soft" or "wgpu"`)
	return cmd
}

func printAdapter(w *tabwriter.Writer, drv string, info driver.AdapterInfo) {
	fmt.Fprintf(w, "%s\t%s\t%d MiB\t%t\n", drv, info.Name, info.Budget>>20, info.Software)
}
