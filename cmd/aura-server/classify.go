package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"aura-assistant-backend/internal/compose"
	"aura-assistant-backend/internal/intent"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Show how a message would be routed",
	Long: `Print the routing decision for a message without calling any remote service.

The output shows whether the identity guard fires, the classified intent and,
for downloads, what the extractors pulled out of the text.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

type classification struct {
	Text     string                  `json:"text"`
	Intent   intent.Intent           `json:"intent"`
	Download *intent.DownloadRequest `json:"download,omitempty"`
	Clarify  bool                    `json:"needsClarification,omitempty"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	out := classification{Text: text, Intent: compose.Decide(text)}
	if intent.IsDownload(out.Intent) {
		req, ok := intent.Extract(out.Intent, text)
		if ok {
			out.Download = &req
		} else {
			out.Clarify = true
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
