package profile

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tomlazar/table"

	"github.com/markusressel/controlbox/cmd/global"
	"github.com/markusressel/controlbox/internal"
	"github.com/markusressel/controlbox/internal/blocks"
	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/configuration"
	"github.com/markusressel/controlbox/internal/control"
	"github.com/markusressel/controlbox/internal/ui"
)

const graphWidth = 100

var graphCmd = &cobra.Command{
	Use:   "graph <id>",
	Short: "Print the points of a stored setpoint profile and plot it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid object id: %s", args[0])
		}

		configuration.ReadConfigFile()
		if err := configuration.Validate(viper.ConfigFileUsed()); err != nil {
			ui.Fatal(err.Error())
		}
		b, err := internal.OpenBox(configuration.CurrentConfig, global.Version)
		if err != nil {
			return err
		}

		obj, ok := b.Container().Fetch(cbox.ObjectID(id)).(*blocks.SetpointProfile)
		if !ok {
			return fmt.Errorf("object %d is not an active setpoint profile", id)
		}
		profile := obj.Profile()

		var rows [][]string
		for _, point := range profile.Points() {
			rows = append(rows, []string{
				(time.Duration(point.Time) * time.Second).String(),
				point.Temperature.String(),
			})
		}
		tab := table.Table{
			Headers: []string{"Time", "Temperature"},
			Rows:    rows,
		}
		var buf bytes.Buffer
		tableErr := tab.WriteTable(&buf, &table.Config{
			ShowIndex:       false,
			Color:           !global.NoColor,
			AlternateColors: true,
			TitleColorCode:  ansi.ColorCode("white+buf"),
			AltColorCodes: []string{
				ansi.ColorCode("white"),
				ansi.ColorCode("white:236"),
			},
		})
		if tableErr != nil {
			return tableErr
		}
		ui.Printfln(buf.String())

		values := sampleProfile(profile, graphWidth)
		if len(values) == 0 {
			ui.Warning("Profile %d has no points", id)
			return nil
		}
		points := profile.Points()
		caption := fmt.Sprintf("Temperature over %s", time.Duration(points[len(points)-1].Time-points[0].Time)*time.Second)
		graph := asciigraph.Plot(values, asciigraph.Height(15), asciigraph.Width(graphWidth), asciigraph.Caption(caption))
		ui.Printfln(graph)
		return nil
	},
}

// sampleProfile evaluates the profile at count evenly spaced times between
// its first and its last point.
func sampleProfile(profile *control.SetpointProfile, count int) []float64 {
	points := profile.Points()
	if len(points) == 0 || count <= 0 {
		return nil
	}
	first := points[0].Time
	span := points[len(points)-1].Time - first
	if span == 0 || count == 1 {
		return []float64{points[len(points)-1].Temperature.Float()}
	}

	values := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		elapsed := first + span*int64(i)/int64(count-1)
		value, ok := profile.SettingAt(elapsed)
		if !ok {
			continue
		}
		values = append(values, value.Float())
	}
	return values
}

func init() {
	Command.AddCommand(graphCmd)
}
