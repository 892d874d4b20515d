package cmd

import (
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/parallax/internal/config"
)

// addMatcherFlags registers the engine parameter flags shared by the match,
// batch and serve commands.
func addMatcherFlags(cmd *cobra.Command) {
	cmd.Flags().Int("min-disparity", 0, "minimum disparity candidate")
	cmd.Flags().Int("max-disparity", 64, "maximum disparity candidate (inclusive)")
	cmd.Flags().Float32("lambda-ad", 10, "AD cost fusion weight")
	cmd.Flags().Float32("lambda-census", 30, "census cost fusion weight")
	cmd.Flags().Int("cross-l1", 34, "cross arm length cap")
	cmd.Flags().Int("cross-l2", 17, "distance beyond which the tightened color threshold applies")
	cmd.Flags().Int("cross-t1", 20, "cross arm color threshold")
	cmd.Flags().Int("cross-t2", 6, "tightened cross arm color threshold")
	cmd.Flags().Float32("p1", 1.0, "scanline smoothness penalty for 1-step disparity changes")
	cmd.Flags().Float32("p2", 3.0, "scanline smoothness penalty for larger disparity changes")
	cmd.Flags().Int("tso", 15, "color gradient threshold relaxing the scanline penalties")
	cmd.Flags().Int("irv-ts", 20, "region voting minimum vote count")
	cmd.Flags().Float32("irv-th", 0.4, "region voting minimum winning share (0..1)")
	cmd.Flags().Float32("lrcheck-thres", 1.0, "left-right consistency threshold in disparities")
	cmd.Flags().Bool("lr-check", true, "enable the left-right consistency check")
	cmd.Flags().Bool("filling", true, "enable region voting and directional filling")
	cmd.Flags().Bool("discontinuity-adjustment", false, "enable discontinuity adjustment")
	cmd.Flags().Int("paths", 4, "scanline directions (4 or 8)")
	cmd.Flags().Int("matcher-workers", 0, "per-pair worker goroutines (0 = all CPUs)")
	cmd.Flags().Int("max-memory", 0, "working-set limit per compute in MB (0 = unlimited)")
}

// applyMatcherOverrides copies values of explicitly set matcher flags over
// the configuration, preserving viper's precedence for everything else.
func applyMatcherOverrides(cmd *cobra.Command, m *config.MatcherConfig) {
	if cmd.Flags().Changed("min-disparity") {
		m.MinDisparity, _ = cmd.Flags().GetInt("min-disparity")
	}
	if cmd.Flags().Changed("max-disparity") {
		m.MaxDisparity, _ = cmd.Flags().GetInt("max-disparity")
	}
	if cmd.Flags().Changed("lambda-ad") {
		m.LambdaAD, _ = cmd.Flags().GetFloat32("lambda-ad")
	}
	if cmd.Flags().Changed("lambda-census") {
		m.LambdaCensus, _ = cmd.Flags().GetFloat32("lambda-census")
	}
	if cmd.Flags().Changed("cross-l1") {
		m.CrossL1, _ = cmd.Flags().GetInt("cross-l1")
	}
	if cmd.Flags().Changed("cross-l2") {
		m.CrossL2, _ = cmd.Flags().GetInt("cross-l2")
	}
	if cmd.Flags().Changed("cross-t1") {
		m.CrossT1, _ = cmd.Flags().GetInt("cross-t1")
	}
	if cmd.Flags().Changed("cross-t2") {
		m.CrossT2, _ = cmd.Flags().GetInt("cross-t2")
	}
	if cmd.Flags().Changed("p1") {
		m.P1, _ = cmd.Flags().GetFloat32("p1")
	}
	if cmd.Flags().Changed("p2") {
		m.P2, _ = cmd.Flags().GetFloat32("p2")
	}
	if cmd.Flags().Changed("tso") {
		m.TSO, _ = cmd.Flags().GetInt("tso")
	}
	if cmd.Flags().Changed("irv-ts") {
		m.IRVThresholdSize, _ = cmd.Flags().GetInt("irv-ts")
	}
	if cmd.Flags().Changed("irv-th") {
		m.IRVThresholdRatio, _ = cmd.Flags().GetFloat32("irv-th")
	}
	if cmd.Flags().Changed("lrcheck-thres") {
		m.LRCheckThreshold, _ = cmd.Flags().GetFloat32("lrcheck-thres")
	}
	if cmd.Flags().Changed("lr-check") {
		m.LRCheck, _ = cmd.Flags().GetBool("lr-check")
	}
	if cmd.Flags().Changed("filling") {
		m.Filling, _ = cmd.Flags().GetBool("filling")
	}
	if cmd.Flags().Changed("discontinuity-adjustment") {
		m.DiscontinuityAdjustment, _ = cmd.Flags().GetBool("discontinuity-adjustment")
	}
	if cmd.Flags().Changed("paths") {
		m.PathCount, _ = cmd.Flags().GetInt("paths")
	}
	if cmd.Flags().Changed("matcher-workers") {
		m.Workers, _ = cmd.Flags().GetInt("matcher-workers")
	}
	if cmd.Flags().Changed("max-memory") {
		m.MaxMemoryMB, _ = cmd.Flags().GetInt("max-memory")
	}
}
