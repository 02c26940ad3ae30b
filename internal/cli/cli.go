// Package cli implements the chesscalc command line: importing PGN
// files, resolving identities, managing calculation rules, and running
// performance calculations.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/RogerMarsh/chesscalc/internal/config"
	"github.com/RogerMarsh/chesscalc/internal/records"
	"github.com/RogerMarsh/chesscalc/internal/store"
)

const usageText = `usage: chesscalc <command> [flags] [args]

commands:
  import          copy game headers from PGN files into the database
  players         list players awaiting identification
  persons         list identified persons and their aliases
  events          list event records
  timecontrols    list time control records
  modes           list playing mode records
  identify        make records aliases of one identified record
  identify-names  identify players matching names as one person
  split           dissolve an identified record into its aliases
  break           detach chosen aliases from an identified record
  change          move the identified record role to a chosen alias
  rule-save       save a calculation rule
  rule-list       list saved calculation rules
  rule-delete     delete a saved calculation rule
  calc            run a performance calculation
  export-persons  write person identifications to a file
  import-persons  apply person identifications from a file
  chart           render calculation results to a PNG file

run 'chesscalc <command> -h' for command flags
`

// Run dispatches the command line and returns the process exit code.
func Run(args []string) int {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usageText)
		return 2
	}
	command, rest := args[0], args[1:]

	run, ok := commands[command]
	if !ok {
		fmt.Fprintf(os.Stderr, "chesscalc: unknown command %q\n\n%s", command, usageText)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chesscalc: %v\n", err)
		return 1
	}
	if err := run(cfg, rest); err != nil {
		fmt.Fprintf(os.Stderr, "chesscalc %s: %v\n", command, err)
		return 1
	}
	return 0
}

var commands = map[string]func(*config.Config, []string) error{
	"import":         cmdImport,
	"players":        cmdPlayers,
	"persons":        cmdPersons,
	"events":         cmdItems(records.KindEvent),
	"timecontrols":   cmdItems(records.KindTimeControl),
	"modes":          cmdItems(records.KindMode),
	"identify":       cmdIdentify,
	"identify-names": cmdIdentifyNames,
	"split":          cmdSplit,
	"break":          cmdBreak,
	"change":         cmdChange,
	"rule-save":      cmdRuleSave,
	"rule-list":      cmdRuleList,
	"rule-delete":    cmdRuleDelete,
	"calc":           cmdCalc,
	"export-persons": cmdExportPersons,
	"import-persons": cmdImportPersons,
	"chart":          cmdChart,
}

// newFlagSet returns a flag set which prints its own errors and
// returns them instead of exiting.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// withStore opens the configured store for a command body.
func withStore(cfg *config.Config, body func(store.Store) error) error {
	s, err := cfg.OpenStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return body(s)
}

// itemKindFlag maps the -kind flag value to a record kind. Player is
// the default and is handled separately by the identity commands.
func itemKindFlag(kind string) (records.ItemKind, bool, error) {
	switch kind {
	case "", "player":
		return "", true, nil
	case "event":
		return records.KindEvent, false, nil
	case "time", "timecontrol":
		return records.KindTimeControl, false, nil
	case "mode":
		return records.KindMode, false, nil
	}
	return "", false, fmt.Errorf("unknown kind %q: want player, event, time, or mode", kind)
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
