package terminal

import (
	"fmt"
	"strings"

	sessions "github.com/GriffinCanCode/shellbridge/internal/terminal"
)

func fenced(text string) string {
	if text == "" {
		return "_(no output)_"
	}
	fence := "```"
	for strings.Contains(text, fence) {
		fence += "`"
	}
	return fence + "\n" + text + "\n" + fence
}

func outputSummary(out *sessions.Output) string {
	var sb strings.Builder
	sb.WriteString(fenced(out.Stdout))
	if out.Stderr != "" {
		sb.WriteString("\n\n**stderr**\n")
		sb.WriteString(fenced(out.Stderr))
	}
	if out.HasMore {
		sb.WriteString("\n\nSession is still running.")
	} else {
		fmt.Fprintf(&sb, "\n\nSession %s.", out.Status)
	}
	return sb.String()
}

func sessionTable(list []sessions.Info) string {
	if len(list) == 0 {
		return "No sessions."
	}

	var sb strings.Builder
	sb.WriteString("| Session | Kind | Status | Command | Pid | Viewers |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for _, info := range list {
		command := info.Command
		if len(info.Args) > 0 {
			command += " " + strings.Join(info.Args, " ")
		}
		if command == "" {
			command = "(shell)"
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s | `%s` | %d | %d |\n",
			info.SessionID, info.Kind, info.Status, strings.ReplaceAll(command, "|", `\|`), info.Pid, info.Viewers)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
