package cli

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/RogerMarsh/chesscalc/internal/calc"
	"github.com/RogerMarsh/chesscalc/internal/chart"
	"github.com/RogerMarsh/chesscalc/internal/config"
	"github.com/RogerMarsh/chesscalc/internal/export"
	"github.com/RogerMarsh/chesscalc/internal/identify"
	"github.com/RogerMarsh/chesscalc/internal/importer"
	"github.com/RogerMarsh/chesscalc/internal/records"
	"github.com/RogerMarsh/chesscalc/internal/report"
	"github.com/RogerMarsh/chesscalc/internal/store"
)

func cmdImport(cfg *config.Config, args []string) error {
	fs := newFlagSet("import")
	validate := fs.Bool("validate", false, "replay movetext and report games contradicting their Result tag")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no PGN files or directories named")
	}
	return withStore(cfg, func(s store.Store) error {
		rpt := report.New(os.Stdout)
		_, err := importer.Import(s, fs.Args(), importer.Options{Validate: *validate}, rpt)
		return err
	})
}

func cmdPlayers(cfg *config.Config, args []string) error {
	fs := newFlagSet("players")
	known := fs.Bool("known", false, "list identified players instead of new ones")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withStore(cfg, func(s store.Store) error {
		players, err := s.Players(*known)
		if err != nil {
			return err
		}
		sort.Slice(players, func(i, j int) bool {
			if players[i].Key.Name != players[j].Key.Name {
				return players[i].Key.Name < players[j].Key.Name
			}
			return players[i].Identity < players[j].Identity
		})
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		for _, p := range players {
			fmt.Fprintf(w, "%s\t%s\n", p.Identity, p.Key)
		}
		return w.Flush()
	})
}

func cmdPersons(cfg *config.Config, args []string) error {
	fs := newFlagSet("persons")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withStore(cfg, func(s store.Store) error {
		players, err := s.Players(true)
		if err != nil {
			return err
		}
		var primaries []*records.Player
		for _, p := range players {
			if p.IsPrimary() {
				primaries = append(primaries, p)
			}
		}
		sort.Slice(primaries, func(i, j int) bool {
			if primaries[i].Key.Name != primaries[j].Key.Name {
				return primaries[i].Key.Name < primaries[j].Key.Name
			}
			return primaries[i].Identity < primaries[j].Identity
		})
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		for _, p := range primaries {
			fmt.Fprintf(w, "%s\t%s\n", p.Identity, p.Key)
			aliases, err := s.PlayerAliases(p.Identity)
			if err != nil {
				return err
			}
			for _, a := range aliases {
				if a.Identity != p.Identity {
					fmt.Fprintf(w, "  %s\t%s\n", a.Identity, a.Key)
				}
			}
		}
		return w.Flush()
	})
}

func cmdItems(kind records.ItemKind) func(*config.Config, []string) error {
	return func(cfg *config.Config, args []string) error {
		fs := newFlagSet(string(kind))
		known := fs.Bool("known", false, "list identified records instead of new ones")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return withStore(cfg, func(s store.Store) error {
			items, err := s.Items(kind, *known)
			if err != nil {
				return err
			}
			sort.Slice(items, func(i, j int) bool {
				if items[i].Key != items[j].Key {
					return items[i].Key < items[j].Key
				}
				return items[i].Identity < items[j].Identity
			})
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			for _, it := range items {
				key := it.Key
				if kind == records.KindEvent {
					if ek, err := records.DecodeEventKey(it.Key); err == nil {
						key = ek.String()
					}
				}
				fmt.Fprintf(w, "%s\t%s\n", it.Identity, key)
			}
			return w.Flush()
		})
	}
}

func cmdIdentify(cfg *config.Config, args []string) error {
	fs := newFlagSet("identify")
	kind := fs.String("kind", "player", "record kind: player, event, time, or mode")
	to := fs.String("to", "", "identity of the record the others become aliases of")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *to == "" {
		return fmt.Errorf("-to identity required")
	}
	itemKind, isPlayer, err := itemKindFlag(*kind)
	if err != nil {
		return err
	}
	return withStore(cfg, func(s store.Store) error {
		if isPlayer {
			return identify.PlayersAsPerson(s, *to, fs.Args())
		}
		return identify.ItemsAsOne(s, itemKind, *to, fs.Args())
	})
}

func cmdIdentifyNames(cfg *config.Config, args []string) error {
	fs := newFlagSet("identify-names")
	to := fs.String("to", "", "identity of the person the matching players become aliases of")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *to == "" {
		return fmt.Errorf("-to identity required")
	}
	return withStore(cfg, func(s store.Store) error {
		return identify.PlayersByNameAsPerson(s, *to, fs.Args())
	})
}

func cmdSplit(cfg *config.Config, args []string) error {
	fs := newFlagSet("split")
	kind := fs.String("kind", "player", "record kind: player, event, time, or mode")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("one identity required")
	}
	itemKind, isPlayer, err := itemKindFlag(*kind)
	if err != nil {
		return err
	}
	return withStore(cfg, func(s store.Store) error {
		if isPlayer {
			return identify.SplitPerson(s, fs.Arg(0))
		}
		return identify.SplitItem(s, itemKind, fs.Arg(0))
	})
}

func cmdBreak(cfg *config.Config, args []string) error {
	fs := newFlagSet("break")
	kind := fs.String("kind", "player", "record kind: player, event, time, or mode")
	from := fs.String("from", "", "identity of the identified record losing the aliases")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *from == "" {
		return fmt.Errorf("-from identity required")
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no alias identities named")
	}
	itemKind, isPlayer, err := itemKindFlag(*kind)
	if err != nil {
		return err
	}
	return withStore(cfg, func(s store.Store) error {
		if isPlayer {
			return identify.BreakAliases(s, *from, fs.Args())
		}
		return identify.BreakItemAliases(s, itemKind, *from, fs.Args())
	})
}

func cmdChange(cfg *config.Config, args []string) error {
	fs := newFlagSet("change")
	kind := fs.String("kind", "player", "record kind: player, event, time, or mode")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("one alias identity required")
	}
	itemKind, isPlayer, err := itemKindFlag(*kind)
	if err != nil {
		return err
	}
	return withStore(cfg, func(s store.Store) error {
		if isPlayer {
			return identify.ChangeIdentifiedPerson(s, fs.Arg(0))
		}
		return identify.ChangeIdentifiedItem(s, itemKind, fs.Arg(0))
	})
}

func ruleFlags(fs *flagSetRule) {
	fs.fs.StringVar(&fs.player, "player", "", "identity of the person whose population is calculated")
	fs.fs.StringVar(&fs.events, "events", "", "comma-separated event identities bounding the population")
	fs.fs.StringVar(&fs.from, "from", "", "earliest game date, yyyy-mm-dd")
	fs.fs.StringVar(&fs.to, "to", "", "latest game date, yyyy-mm-dd")
	fs.fs.StringVar(&fs.timeControl, "timecontrol", "", "time control identity")
	fs.fs.StringVar(&fs.mode, "mode", "", "playing mode identity")
	fs.fs.StringVar(&fs.initials, "initial", "", "comma-separated identity=performance pairs fixing performances")
}

type flagSetRule struct {
	fs                       *flag.FlagSet
	player, events, from, to string
	timeControl, mode        string
	initials                 string
}

func (f *flagSetRule) selector(name string) (*records.Selector, error) {
	initials, err := parseInitials(f.initials)
	if err != nil {
		return nil, err
	}
	return &records.Selector{
		Name:        name,
		Player:      f.player,
		Events:      splitList(f.events),
		FromDate:    f.from,
		ToDate:      f.to,
		TimeControl: f.timeControl,
		Mode:        f.mode,
		Initials:    initials,
	}, nil
}

// parseInitials parses "identity=performance" pairs from the -initial
// flag.
func parseInitials(value string) (map[string]float64, error) {
	pairs := splitList(value)
	if len(pairs) == 0 {
		return nil, nil
	}
	initials := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		identity, number, ok := strings.Cut(pair, "=")
		if !ok || identity == "" {
			return nil, fmt.Errorf("initial %q is not identity=performance", pair)
		}
		performance, err := strconv.ParseFloat(number, 64)
		if err != nil {
			return nil, fmt.Errorf("initial %q: %w", pair, err)
		}
		initials[identity] = performance
	}
	return initials, nil
}

func cmdRuleSave(cfg *config.Config, args []string) error {
	rf := &flagSetRule{fs: newFlagSet("rule-save")}
	name := rf.fs.String("name", "", "rule name")
	ruleFlags(rf)
	if err := rf.fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("-name required")
	}
	rule, err := rf.selector(*name)
	if err != nil {
		return err
	}
	if err := calc.ValidateRule(rule); err != nil {
		return err
	}
	return withStore(cfg, func(s store.Store) error {
		return s.PutSelector(rule)
	})
}

func cmdRuleList(cfg *config.Config, args []string) error {
	fs := newFlagSet("rule-list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withStore(cfg, func(s store.Store) error {
		rules, err := s.Selectors()
		if err != nil {
			return err
		}
		sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		for _, r := range rules {
			detail := ""
			if r.Player != "" {
				detail = "player " + r.Player
			} else {
				detail = "events " + fmt.Sprint(r.Events)
			}
			if r.FromDate != "" {
				detail += fmt.Sprintf(" %s..%s", r.FromDate, r.ToDate)
			}
			if r.TimeControl != "" {
				detail += " timecontrol " + r.TimeControl
			}
			if r.Mode != "" {
				detail += " mode " + r.Mode
			}
			fmt.Fprintf(w, "%s\t%s\n", r.Name, detail)
		}
		return w.Flush()
	})
}

func cmdRuleDelete(cfg *config.Config, args []string) error {
	fs := newFlagSet("rule-delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("one rule name required")
	}
	return withStore(cfg, func(s store.Store) error {
		return s.DeleteSelector(fs.Arg(0))
	})
}

// resolveRule loads a saved rule by name or builds an ad-hoc one from
// the command's own selection flags.
func resolveRule(s store.Store, name string, rf *flagSetRule) (*records.Selector, error) {
	if name != "" {
		return s.SelectorByName(name)
	}
	return rf.selector("ad-hoc")
}

func cmdCalc(cfg *config.Config, args []string) error {
	rf := &flagSetRule{fs: newFlagSet("calc")}
	rule := rf.fs.String("rule", "", "saved rule name; selection flags build an ad-hoc rule instead")
	stats := rf.fs.Bool("stats", false, "print population statistics")
	ruleFlags(rf)
	if err := rf.fs.Parse(args); err != nil {
		return err
	}
	return withStore(cfg, func(s store.Store) error {
		selected, err := resolveRule(s, *rule, rf)
		if err != nil {
			return err
		}
		result, err := calc.Run(s, selected, cfg.Measure, cfg.Delta)
		if err != nil {
			return err
		}
		printResult(result, *stats)
		return nil
	})
}

func printResult(result *calc.Result, stats bool) {
	fmt.Printf("%d games selected", result.SelectedGames)
	if result.SkippedGames > 0 {
		fmt.Printf(", %d skipped for unidentified players", result.SkippedGames)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	for i, pop := range result.Populations {
		if pop.Stable {
			fmt.Fprintf(w, "population %d: %d persons, stable after %d iterations\n",
				i+1, len(pop.Persons), pop.Iterations)
		} else {
			fmt.Fprintf(w, "population %d: %d persons, NOT stable after %d iterations; performances are approximate\n",
				i+1, len(pop.Persons), pop.Iterations)
		}
		for _, person := range pop.PersonsByPerformance() {
			fmt.Fprintf(w, "%s\t%s\t%d games\t%.1f points\t%.2f\n",
				person.Identity, person.Name, person.GameCount, person.Score, person.Performance())
		}
		if stats {
			printStatistics(w, pop.ComputeStatistics())
		}
	}
	for _, persons := range result.NonConvergent {
		fmt.Fprintf(w, "population of %d persons does not converge; performances not calculated:\n",
			len(persons))
		for _, person := range persons {
			fmt.Fprintf(w, "%s\t%s\n", person.Identity, person.Name)
		}
	}
	w.Flush()
}

func printStatistics(w *tabwriter.Writer, s *calc.Statistics) {
	fmt.Fprintf(w, "performance\tmax %.2f\tmean %.2f\tmedian %.2f\tmin %.2f\n",
		s.MaxPerformance, s.MeanPerformance, s.MedianPerformance, s.MinPerformance)
	fmt.Fprintf(w, "grade\tmax %.2f\tmean %.2f\tmedian %.2f\tmin %.2f\n",
		s.MaxGrade, s.MeanGrade, s.MedianGrade, s.MinGrade)
	fmt.Fprintf(w, "score prediction\tmean diff %.3f\tstdev %.3f\n",
		s.MeanDiffScorePrediction, s.StdevScorePrediction)
	fmt.Fprintf(w, "gap prediction\tmean diff %.3f\tstdev %.3f\n",
		s.MeanDiffGapScorePrediction, s.StdevGapScorePrediction)
	fmt.Fprintf(w, "totals\tscore %.1f\tpredicted %.2f\thalf-games %d\n",
		s.SumScore, s.SumPrediction, s.SumHalfGames)
}

func cmdExportPersons(cfg *config.Config, args []string) error {
	fs := newFlagSet("export-persons")
	out := fs.String("out", "", "output file")
	events := fs.String("events", "", "comma-separated event identities; export only persons in their games")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("-out file required")
	}
	if *events != "" && fs.NArg() > 0 {
		return fmt.Errorf("-events and person identities are mutually exclusive")
	}
	return withStore(cfg, func(s store.Store) error {
		var persons export.Persons
		var err error
		if *events != "" {
			persons, err = export.ExportEventPersons(s, splitList(*events))
		} else {
			persons, err = export.ExportPersons(s, fs.Args())
		}
		if err != nil {
			return err
		}
		if err := export.WriteFile(*out, persons); err != nil {
			return err
		}
		fmt.Printf("%d persons written to %s\n", len(persons), *out)
		return nil
	})
}

func cmdImportPersons(cfg *config.Config, args []string) error {
	fs := newFlagSet("import-persons")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("one export file required")
	}
	return withStore(cfg, func(s store.Store) error {
		persons, err := export.ReadFile(fs.Arg(0))
		if err != nil {
			return err
		}
		rpt := report.New(os.Stdout)
		applied, err := export.ImportPersons(s, persons, rpt)
		if err != nil {
			return err
		}
		fmt.Printf("%d of %d person entries applied\n", applied, len(persons))
		return nil
	})
}

func cmdChart(cfg *config.Config, args []string) error {
	rf := &flagSetRule{fs: newFlagSet("chart")}
	rule := rf.fs.String("rule", "", "saved rule name; selection flags build an ad-hoc rule instead")
	out := rf.fs.String("out", "", "output PNG file")
	interval := rf.fs.Float64("interval", 10, "performance difference bucket width")
	performances := rf.fs.Bool("performances", false, "chart person performances instead of the result distribution")
	ruleFlags(rf)
	if err := rf.fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("-out file required")
	}
	return withStore(cfg, func(s store.Store) error {
		selected, err := resolveRule(s, *rule, rf)
		if err != nil {
			return err
		}
		result, err := calc.Run(s, selected, cfg.Measure, cfg.Delta)
		if err != nil {
			return err
		}
		if len(result.Populations) == 0 {
			return fmt.Errorf("no convergent population to chart")
		}
		pop := largestPopulation(result.Populations)
		if *performances {
			return chart.RenderPerformances(pop.PersonsByPerformance(), *out)
		}
		intervals, err := pop.Distribution(*interval)
		if err != nil {
			return err
		}
		return chart.RenderDistribution(intervals, *out)
	})
}

func largestPopulation(pops []*calc.Population) *calc.Population {
	largest := pops[0]
	for _, pop := range pops[1:] {
		if len(pop.Persons) > len(largest.Persons) {
			largest = pop
		}
	}
	return largest
}
