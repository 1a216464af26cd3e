package cmd

import "testing"

func TestSubcommands_Registered(t *testing.T) {
	want := []string{"run", "serve", "check", "annotate"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %q subcommand to be registered", name)
		}
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"format", "config"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected persistent flag --%s", name)
		}
	}
}

func TestServeCmd_Flags(t *testing.T) {
	for _, name := range []string{"transport", "port"} {
		if serveCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag --%s on serve", name)
		}
	}
}

func TestAnnotateCmd_Flags(t *testing.T) {
	if annotateCmd.Flags().Lookup("out") == nil {
		t.Error("expected flag --out on annotate")
	}
}
