package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/brensch/heiabot/config"
	"gopkg.in/yaml.v3"
)

func main() {
	out := flag.String("out", "./demo.yaml", "where to write the sample config")
	flag.Parse()

	slog.Info("generating sample config", "out", *out)
	var sample config.AppConfig
	sample.OpenAI.Model = "gpt-4o-mini"
	sample.Deadlines.AlertTime = "17:17"
	sample.Deadlines.Timezone = "Europe/Zurich"
	sample.Deadlines.Thresholds = []int{7, 3, 1, 0}
	sample.Deadlines.MentionEveryone = true
	sample.Exams.FilesJSON = "old_exams.json"
	sample.Exams.MaxCandidates = 350
	sample.Log.Level = "info"

	confYAML, err := yaml.Marshal(sample)
	if err != nil {
		slog.Error("failed to marshal sample yaml", "err", err)
		os.Exit(1)
	}

	err = os.WriteFile(*out, confYAML, 0644)
	if err != nil {
		slog.Error("failed to write sample conf to file", "err", err)
		os.Exit(1)
	}
}
