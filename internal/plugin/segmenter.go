package plugin

import "fmt"

// Segment is one plugin invocation carved out of the command-line suffix:
// the token that named it, plus every token up to (not including) the next
// known command.
type Segment struct {
	CommandName string
	Args        []string
}

// Segmenter splits a command-line suffix into Segments by walking it
// left-to-right against a known-commands set (NewEngine builds it from every
// plugin's name, functions.name and functions.aliases), grounded on
// original_source/src/app/cli/command_segmenter.rs's segment_commands_only.
type Segmenter struct {
	known map[string]struct{}
}

// NewSegmenter builds a Segmenter recognizing exactly the given command
// tokens.
func NewSegmenter(knownCommands []string) *Segmenter {
	known := make(map[string]struct{}, len(knownCommands))
	for _, c := range knownCommands {
		known[c] = struct{}{}
	}
	return &Segmenter{known: known}
}

// Segment splits args (already stripped of global flags) into ordered
// Segments. A token encountered before any command has started is an error:
// by the time Segment runs, global flags are assumed already stripped, so
// such a token names an unknown command, matching spec §6 ("Unknown
// commands → exit non-zero with a message naming the unknown token").
func (s *Segmenter) Segment(args []string) ([]Segment, error) {
	var segments []Segment
	var current *Segment

	for _, arg := range args {
		if _, known := s.known[arg]; known {
			if current != nil {
				segments = append(segments, *current)
			}
			current = &Segment{CommandName: arg}
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("unexpected argument %q found after global args: %w", arg, ErrPluginNotFound)
		}
		current.Args = append(current.Args, arg)
	}
	if current != nil {
		segments = append(segments, *current)
	}
	return segments, nil
}
