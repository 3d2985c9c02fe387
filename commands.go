package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"voxpaste/audio"
	"voxpaste/doctor"
	"voxpaste/log"
	"voxpaste/store"
	"voxpaste/transcriber"
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Print recent transcriptions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		n, _ := cmd.Flags().GetInt("n")
		st, err := store.Open(cfg.DBDir())
		if err != nil {
			return fmt.Errorf("%w (is voxpaste already running?)", err)
		}
		defer st.Close()

		recs, err := st.Recent(cmd.Context(), n)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(out, "No transcriptions yet.")
			return nil
		}
		for _, r := range recs {
			fmt.Fprintf(out, "%s  %5.1fs  %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Duration, r.Text)
			if r.Summary != nil {
				fmt.Fprintf(out, "%27s» %s\n", "", *r.Summary)
			}
			if r.AudioRef != nil {
				fmt.Fprintf(out, "%27s♪ %s\n", "", *r.AudioRef)
			}
		}
		return nil
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		actx, err := audio.NewContext()
		if err != nil {
			return err
		}
		defer actx.Close()
		devices, err := actx.Devices()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, d := range devices {
			tag := ""
			if audio.IsBluetooth(d.Name) {
				tag = "  [bluetooth, low quality]"
			}
			fmt.Fprintf(out, "%s%s\n", d.Name, tag)
		}
		return nil
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file.wav>",
	Short: "Transcribe a WAV file and print the text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return err
		}
		t, err := transcriber.New(cfg)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if cfg.TranscribeTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.TranscribeTimeout)
			defer cancel()
		}
		res, err := t.Transcribe(ctx, args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", t.Name(), err)
		}
		text := strings.TrimSpace(res.Text)
		log.TranscriptionText(text)
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check hotkey, microphone, backend, clipboard and store",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		exitCode = doctor.Run(cmd.Context(), cmd.OutOrStdout(), doctor.Checks(cfg))
	},
}

func init() {
	recentCmd.Flags().IntP("n", "n", 10, "number of records")
	rootCmd.AddCommand(recentCmd, devicesCmd, transcribeCmd, doctorCmd)
}
