package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wizgo/wizgo/device"
	"github.com/wizgo/wizgo/devices"
	"github.com/wizgo/wizgo/discovery"
	"github.com/wizgo/wizgo/mdns"
	"github.com/wizgo/wizgo/pilot"
	"github.com/wizgo/wizgo/scenes"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:           "wizctl",
	Short:         "Command-line client for WiZ-family smart lighting devices",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	discoverTimeout time.Duration
	discoverAddr    string
	discoverJSON    bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find WiZ devices on the local network",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), discoverTimeout)
		defer cancel()

		found, err := mdns.Discover(ctx, discoverTimeout, discoverAddr)
		if err != nil {
			return fmt.Errorf("discover: %w", err)
		}

		for _, dev := range found {
			conf.remember(dev.MAC)
		}

		if discoverJSON {
			return printJSON(found)
		}
		for _, dev := range found {
			name := conf.nameFor(dev.MAC)
			if name == "" {
				fmt.Printf("%-15s  %s\n", dev.IP, dev.MAC)
			} else {
				fmt.Printf("%-15s  %s  %s\n", dev.IP, dev.MAC, name)
			}
		}
		return nil
	},
}

var stateJSON bool

var stateCmd = &cobra.Command{
	Use:   "state IP",
	Short: "Print a device's current pilot state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := device.New(args[0])
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 12*time.Second)
		defer cancel()

		parser, err := d.UpdateState(ctx)
		if err != nil {
			return fmt.Errorf("state: %w", err)
		}

		if stateJSON {
			return printJSON(parser.Raw())
		}

		printOnOff(parser.State())
		if brightness, ok := parser.Brightness(); ok {
			fmt.Printf("brightness: %d\n", brightness)
		}
		if sceneID, ok := parser.SceneID(); ok {
			fmt.Printf("scene:      %s (%d)\n", scenes.NameFromID(sceneID), sceneID)
		}
		if kelvin, ok := parser.ColorTemp(); ok {
			fmt.Printf("colortemp:  %dK\n", kelvin)
		}
		return nil
	},
}

var (
	onScene      string
	onBrightness int
	onColorTemp  int
	onRGB        []int
	onSpeed      int
)

var onCmd = &cobra.Command{
	Use:   "on IP",
	Short: "Turn a device on, optionally setting scene/color/brightness",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := device.New(args[0])
		if err != nil {
			return err
		}
		defer d.Close()

		builder := pilot.New()
		if onScene != "" {
			builder = builder.Scene(onScene)
		}
		if onBrightness > 0 {
			builder = builder.Brightness(onBrightness)
		}
		if onColorTemp > 0 {
			builder = builder.ColorTemp(onColorTemp)
		}
		if len(onRGB) == 3 {
			builder = builder.RGB(onRGB[0], onRGB[1], onRGB[2])
		}
		if onSpeed > 0 {
			builder = builder.Speed(onSpeed)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 12*time.Second)
		defer cancel()

		if err := d.TurnOn(ctx, builder); err != nil {
			return fmt.Errorf("on: %w", err)
		}
		fmt.Println(green("on"))
		return nil
	},
}

var offCmd = &cobra.Command{
	Use:   "off IP",
	Short: "Turn a device off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := device.New(args[0])
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 12*time.Second)
		defer cancel()

		if err := d.TurnOff(ctx); err != nil {
			return fmt.Errorf("off: %w", err)
		}
		fmt.Println(red("off"))
		return nil
	},
}

var effectsBulbType string

var effectsCmd = &cobra.Command{
	Use:   "effects",
	Short: "List scene names available for a bulb type",
	RunE: func(cmd *cobra.Command, args []string) error {
		class := devices.Class(effectsBulbType)
		if effectsBulbType == "" {
			class = devices.RGB
		}
		named := scenes.ForClass(class.SceneClass())

		ids := make([]int, 0, len(named))
		for id := range named {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			fmt.Printf("%4d  %s\n", id, named[id])
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info IP",
	Short: "Print diagnostics for a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := device.New(args[0])
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 12*time.Second)
		defer cancel()

		if _, err := d.UpdateState(ctx); err != nil {
			return fmt.Errorf("info: %w", err)
		}
		if _, err := d.GetCapability(ctx); err != nil {
			return fmt.Errorf("info: %w", err)
		}
		info, err := d.GetDeviceInfo(ctx)
		if err != nil {
			return fmt.Errorf("info: %w", err)
		}

		diag := d.Diagnostics()
		diag["home_id"] = info.HomeID
		diag["room_id"] = info.RoomID
		diag["type_id"] = info.TypeID
		return printJSON(diag)
	},
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printOnOff(state bool) {
	if state {
		fmt.Println(green("on"))
		return
	}
	fmt.Println(red("off"))
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 5*time.Second, "discovery window")
	discoverCmd.Flags().StringVar(&discoverAddr, "address", "255.255.255.255", "broadcast address")
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "JSON output")

	stateCmd.Flags().BoolVar(&stateJSON, "json", false, "JSON output")

	onCmd.Flags().StringVar(&onScene, "scene", "", "scene name")
	onCmd.Flags().IntVar(&onBrightness, "brightness", 0, "brightness 10-255")
	onCmd.Flags().IntVar(&onColorTemp, "colortemp", 0, "color temperature in Kelvin")
	onCmd.Flags().IntSliceVar(&onRGB, "rgb", nil, "red green blue, e.g. --rgb 255,0,0")
	onCmd.Flags().IntVar(&onSpeed, "speed", 0, "dynamic scene speed 1-200")

	effectsCmd.Flags().StringVar(&effectsBulbType, "bulb-type", "", "RGB, TW, DW, SOCKET, or FANDIM (default RGB)")

	rootCmd.AddCommand(discoverCmd, stateCmd, onCmd, offCmd, effectsCmd, infoCmd)
}
