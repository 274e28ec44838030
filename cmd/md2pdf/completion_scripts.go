package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// shells lists the completion targets, in help order.
var shells = []Shell{ShellBash, ShellZsh, ShellFish, ShellPowerShell}

// scriptWriter keeps the first write error so generators can print freely.
type scriptWriter struct {
	w   io.Writer
	err error
}

func (s *scriptWriter) printf(format string, args ...any) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format, args...)
}

func commandNames(cmds []commandDef) []string {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	return names
}

func shellNames() []string {
	names := make([]string, len(shells))
	for i, s := range shells {
		names[i] = string(s)
	}
	return names
}

// flagWords returns "--long -s" for every flag of c.
func flagWords(c commandDef) []string {
	var words []string
	for _, f := range c.Flags {
		words = append(words, "--"+f.Long)
		if f.Short != "" {
			words = append(words, "-"+f.Short)
		}
	}
	return words
}

// valuedFlags collects the enum and directory flags of every command.
func valuedFlags(cmds []commandDef) []flagDef {
	seen := make(map[string]bool)
	var out []flagDef
	for _, c := range cmds {
		for _, f := range c.Flags {
			if (f.Type == flagEnum || f.Type == flagDir) && !seen[f.Long] {
				seen[f.Long] = true
				out = append(out, f)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Long < out[j].Long })
	return out
}

// globAlternation turns "*.md,*.markdown" into "md|markdown".
func globAlternation(pattern string) string {
	var exts []string
	for _, p := range strings.Split(pattern, ",") {
		exts = append(exts, strings.TrimPrefix(strings.TrimSpace(p), "*."))
	}
	return strings.Join(exts, "|")
}

// plainDesc strips characters that need escaping in completion specs.
func plainDesc(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '\'', '"', ':', '`', '$', '\\':
			return -1
		}
		return r
	}, s)
}

func generateBash(w io.Writer) error {
	cmds := getCommands()
	sw := &scriptWriter{w: w}

	sw.printf("# bash completion for md2pdf\n")
	sw.printf("_md2pdf_completions() {\n")
	sw.printf("    local cur prev cmd opts\n")
	sw.printf("    cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	sw.printf("    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n")
	sw.printf("    cmd=\"${COMP_WORDS[1]}\"\n\n")
	sw.printf("    if [[ ${COMP_CWORD} -eq 1 ]]; then\n")
	sw.printf("        COMPREPLY=( $(compgen -W \"%s\" -- \"$cur\") $(compgen -f -X '!*.@(md|markdown)' -- \"$cur\") )\n", strings.Join(commandNames(cmds), " "))
	sw.printf("        return\n")
	sw.printf("    fi\n\n")

	sw.printf("    case \"$prev\" in\n")
	for _, f := range valuedFlags(cmds) {
		pattern := "--" + f.Long
		if f.Short != "" {
			pattern += "|-" + f.Short
		}
		if f.Type == flagDir {
			sw.printf("        %s) COMPREPLY=( $(compgen -d -- \"$cur\") $(compgen -f -X '!*.pdf' -- \"$cur\") ); return ;;\n", pattern)
		} else {
			sw.printf("        %s) COMPREPLY=( $(compgen -W \"%s\" -- \"$cur\") ); return ;;\n", pattern, strings.Join(f.Values, " "))
		}
	}
	sw.printf("    esac\n\n")

	sw.printf("    case \"$cmd\" in\n")
	for _, c := range cmds {
		switch {
		case c.Name == cmdCompletion:
			sw.printf("        %s) COMPREPLY=( $(compgen -W \"%s\" -- \"$cur\") ); return ;;\n", c.Name, strings.Join(shellNames(), " "))
		case c.Name == cmdHelp:
			sw.printf("        %s) COMPREPLY=( $(compgen -W \"%s\" -- \"$cur\") ); return ;;\n", c.Name, strings.Join(commandNames(cmds), " "))
		case len(c.Flags) > 0:
			sw.printf("        %s) opts=\"%s\" ;;\n", c.Name, strings.Join(flagWords(c), " "))
		}
	}
	sw.printf("        *) opts=\"%s\" ;;\n", strings.Join(flagWords(cmds[0]), " "))
	sw.printf("    esac\n\n")

	sw.printf("    if [[ \"$cur\" == -* ]]; then\n")
	sw.printf("        COMPREPLY=( $(compgen -W \"$opts\" -- \"$cur\") )\n")
	sw.printf("        return\n")
	sw.printf("    fi\n")
	sw.printf("    COMPREPLY=( $(compgen -d -- \"$cur\") $(compgen -f -X '!*.@(md|markdown)' -- \"$cur\") )\n")
	sw.printf("}\n")
	sw.printf("complete -o filenames -F _md2pdf_completions md2pdf\n")
	return sw.err
}

func generateZsh(w io.Writer) error {
	cmds := getCommands()
	sw := &scriptWriter{w: w}

	sw.printf("#compdef md2pdf\n\n")
	sw.printf("_md2pdf() {\n")
	sw.printf("  local -a commands\n")
	sw.printf("  commands=(\n")
	for _, c := range cmds {
		sw.printf("    '%s:%s'\n", c.Name, plainDesc(c.Desc))
	}
	sw.printf("  )\n\n")
	sw.printf("  if (( CURRENT == 2 )); then\n")
	sw.printf("    _describe 'command' commands\n")
	sw.printf("    _files -g '*.(md|markdown)'\n")
	sw.printf("    return\n")
	sw.printf("  fi\n\n")
	sw.printf("  case \"$words[2]\" in\n")
	for _, c := range cmds {
		switch {
		case c.Name == cmdCompletion:
			sw.printf("    %s) _values 'shell' %s ;;\n", c.Name, strings.Join(shellNames(), " "))
		case c.Name == cmdHelp:
			sw.printf("    %s) _describe 'command' commands ;;\n", c.Name)
		case len(c.Flags) > 0:
			sw.printf("    %s)\n", c.Name)
			sw.printf("      _arguments \\\n")
			for _, f := range c.Flags {
				sw.printf("        %s \\\n", zshFlagSpec(f))
			}
			if c.TakesFiles {
				sw.printf("        '*:file:_files -g \"*.(%s)\"'\n", globAlternation(c.FilePattern))
			} else {
				sw.printf("        '*:job id:'\n")
			}
			sw.printf("      ;;\n")
		}
	}
	sw.printf("  esac\n")
	sw.printf("}\n\n")
	sw.printf("compdef _md2pdf md2pdf\n")
	return sw.err
}

func zshFlagSpec(f flagDef) string {
	desc := plainDesc(f.Desc)
	var action string
	switch f.Type {
	case flagBool:
	case flagEnum:
		action = fmt.Sprintf(":value:(%s)", strings.Join(f.Values, " "))
	case flagDir:
		action = ":path:_files"
	default:
		action = ":value:"
	}
	if f.Short == "" {
		return fmt.Sprintf("'--%s[%s]%s'", f.Long, desc, action)
	}
	return fmt.Sprintf("'(-%s --%s)'{-%s,--%s}'[%s]%s'", f.Short, f.Long, f.Short, f.Long, desc, action)
}

func generateFish(w io.Writer) error {
	cmds := getCommands()
	sw := &scriptWriter{w: w}

	sw.printf("# fish completion for md2pdf\n")
	sw.printf("complete -c md2pdf -f\n")
	for _, c := range cmds {
		sw.printf("complete -c md2pdf -n '__fish_use_subcommand' -a %s -d '%s'\n", c.Name, plainDesc(c.Desc))
	}
	sw.printf("complete -c md2pdf -n '__fish_use_subcommand' -F -a '(__fish_complete_suffix .md)'\n")

	for _, c := range cmds {
		cond := fmt.Sprintf("'__fish_seen_subcommand_from %s'", c.Name)
		switch c.Name {
		case cmdCompletion:
			sw.printf("complete -c md2pdf -n %s -a '%s'\n", cond, strings.Join(shellNames(), " "))
			continue
		case cmdHelp:
			sw.printf("complete -c md2pdf -n %s -a '%s'\n", cond, strings.Join(commandNames(cmds), " "))
			continue
		}
		if c.TakesFiles {
			sw.printf("complete -c md2pdf -n %s -a '(__fish_complete_suffix .md)'\n", cond)
		}
		for _, f := range c.Flags {
			line := fmt.Sprintf("complete -c md2pdf -n %s -l %s", cond, f.Long)
			if f.Short != "" {
				line += " -s " + f.Short
			}
			switch f.Type {
			case flagBool:
			case flagEnum:
				line += fmt.Sprintf(" -x -a '%s'", strings.Join(f.Values, " "))
			case flagDir:
				line += " -r -F"
			default:
				line += " -r"
			}
			sw.printf("%s -d '%s'\n", line, plainDesc(f.Desc))
		}
	}
	return sw.err
}

func generatePowerShell(w io.Writer) error {
	cmds := getCommands()
	sw := &scriptWriter{w: w}

	sw.printf("# PowerShell completion for md2pdf\n")
	sw.printf("Register-ArgumentCompleter -Native -CommandName md2pdf -ScriptBlock {\n")
	sw.printf("    param($wordToComplete, $commandAst, $cursorPosition)\n\n")
	sw.printf("    $commands = @(%s)\n", psList(commandNames(cmds)))
	sw.printf("    $flags = @{\n")
	for _, c := range cmds {
		switch c.Name {
		case cmdCompletion:
			sw.printf("        '%s' = @(%s)\n", c.Name, psList(shellNames()))
		case cmdHelp:
			sw.printf("        '%s' = $commands\n", c.Name)
		default:
			sw.printf("        '%s' = @(%s)\n", c.Name, psList(flagWords(c)))
		}
	}
	sw.printf("    }\n\n")
	sw.printf("    $elements = $commandAst.CommandElements\n")
	sw.printf("    if ($elements.Count -le 2 -and -not $wordToComplete.StartsWith('-')) {\n")
	sw.printf("        $candidates = $commands\n")
	sw.printf("    } else {\n")
	sw.printf("        $cmd = if ($elements.Count -gt 1) { $elements[1].ToString() } else { '%s' }\n", cmdConvert)
	sw.printf("        if (-not $flags.ContainsKey($cmd)) { $cmd = '%s' }\n", cmdConvert)
	sw.printf("        $candidates = $flags[$cmd]\n")
	sw.printf("    }\n\n")
	sw.printf("    $candidates | Where-Object { $_ -like \"$wordToComplete*\" } | ForEach-Object {\n")
	sw.printf("        [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)\n")
	sw.printf("    }\n")
	sw.printf("}\n")
	return sw.err
}

func psList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return strings.Join(quoted, ", ")
}
