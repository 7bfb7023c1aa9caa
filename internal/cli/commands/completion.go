package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/DataVisuals/expectations/internal/catalog"
)

// NewCompletionCommand creates the completion command for shell completions
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for dqrules. Template names complete
after 'dqrules add' and 'dqrules catalog show'.

Bash:
  $ source <(dqrules completion bash)

Zsh:
  $ dqrules completion zsh > "${fpath[1]}/_dqrules"

Fish:
  $ dqrules completion fish | source

PowerShell:
  PS> dqrules completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			out := cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// completeTemplates offers template names, without namespace, for the first argument
func completeTemplates(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var names []string
	for _, t := range catalog.Default().List() {
		if strings.HasPrefix(t.Name(), toComplete) {
			names = append(names, t.Name()+"\t"+t.DisplayName())
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
