package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_slimedit() {
    local cur prev words cword
    _init_completion || return

    local commands="edit cat encrypt decrypt passwd diff recent forget compact help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        encrypt|decrypt)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-o" -- "$cur"))
            else
                _filedir
            fi
            ;;
        diff)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-markers" -- "$cur"))
            else
                _filedir
            fi
            ;;
        forget)
            # Complete with paths from the index
            local files
            files=$(slimedit recent 2>/dev/null | awk '{print $6}')
            COMPREPLY=($(compgen -W "$files" -- "$cur"))
            ;;
        edit|cat|passwd)
            _filedir
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _slimedit slimedit
`

const zshCompletion = `#compdef slimedit

_slimedit() {
    local -a commands
    commands=(
        'edit:Open a document in the editor'
        'cat:Print a document, decrypting it if needed'
        'encrypt:Encrypt a plain text file'
        'decrypt:Decrypt an encrypted file'
        'passwd:Change the password of an encrypted file'
        'diff:Compare a document with another file'
        'recent:List recently used documents'
        'forget:Remove documents from the recent list'
        'compact:Compact the document index'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'slimedit commands' commands
            ;;
        args)
            case "${words[2]}" in
                encrypt|decrypt)
                    _arguments \
                        '-o[Write the result to this file]:output:_files' \
                        '*:file:_files'
                    ;;
                diff)
                    _arguments \
                        '-markers[Print a merge with conflict markers]' \
                        '*:file:_files'
                    ;;
                edit|cat|passwd)
                    _arguments '*:file:_files'
                    ;;
                forget)
                    _arguments '*:indexed file:_slimedit_recent_files'
                    ;;
                help)
                    _describe -t commands 'slimedit commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_slimedit_recent_files() {
    local -a files
    files=(${(f)"$(slimedit recent 2>/dev/null | awk '{print $6}')"})
    _describe -t files 'recent files' files
}

_slimedit "$@"
`

const fishCompletion = `# slimedit fish completions

set -l commands edit cat encrypt decrypt passwd diff recent forget compact help completion

complete -c slimedit -f

# Commands
complete -c slimedit -n "not __fish_seen_subcommand_from $commands" -a edit -d 'Open a document in the editor'
complete -c slimedit -n "not __fish_seen_subcommand_from $commands" -a cat -d 'Print a document'
complete -c slimedit -n "not __fish_seen_subcommand_from $commands" -a encrypt -d 'Encrypt a plain text file'
complete -c slimedit -n "not __fish_seen_subcommand_from $commands" -a decrypt -d 'Decrypt an encrypted file'
complete -c slimedit -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change a file password'
complete -c slimedit -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare with another file'
complete -c slimedit -n "not __fish_seen_subcommand_from $commands" -a recent -d 'List recent documents'
complete -c slimedit -n "not __fish_seen_subcommand_from $commands" -a forget -d 'Remove from recent list'
complete -c slimedit -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact the index'
complete -c slimedit -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c slimedit -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# Files
complete -c slimedit -n "__fish_seen_subcommand_from edit cat encrypt decrypt passwd diff" -F
complete -c slimedit -n "__fish_seen_subcommand_from encrypt decrypt" -s o -d 'Output file'
complete -c slimedit -n "__fish_seen_subcommand_from diff" -o markers -d 'Merge with conflict markers'

# help completions
complete -c slimedit -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c slimedit -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
