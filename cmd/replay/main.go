// Command replay evaluates a recorded landmark sequence and prints the
// verdict tally and the rep count.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/cheggaaa/pb/v3"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/movement"
	"github.com/ayusman/formcheck/internal/replay"
	"github.com/ayusman/formcheck/internal/session"
)

const barTemplate = `{{ string . "prefix" }} {{counters . "%s/%s" "%s/?"}} {{bar . }} {{percent . "%.01f%%" "?"}} {{ string . "reps" }}`

func main() {
	file := flag.String("file", "", "path of the JSON recording")
	name := flag.String("movement", "", "evaluate as this movement instead of the recorded one")
	tolerance := flag.Float64("tolerance", movement.DefaultTolerance, "allowed deviation in degrees")
	asJSON := flag.Bool("json", false, "print the result as JSON")
	flag.Parse()

	if *file == "" {
		log.Fatalln("recording file not specified, use -file")
	}

	rec, err := replay.LoadFile(*file)
	if err != nil {
		log.Fatalf("load recording: %s", err)
	}

	var opts []replay.Option
	if *name != "" {
		t, err := movement.ParseType(*name)
		if err != nil {
			log.Fatalf("%s", err)
		}
		opts = append(opts, replay.WithMovement(t))
	}

	rules, err := movement.NewRuleSet(movement.Config{Tolerance: *tolerance})
	if err != nil {
		log.Fatalf("rules: %s", err)
	}

	bar := pb.ProgressBarTemplate(barTemplate).Start(len(rec.Frames))
	bar.Set("prefix", rec.Movement.String())
	opts = append(opts, replay.OnFrame(func(_ int, st session.Status) {
		bar.Set("reps", fmt.Sprintf("%d reps", st.Count))
		bar.Increment()
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := replay.Run(ctx, rules, rec, opts...)
	bar.Finish()
	if err != nil {
		log.Fatalf("replay: %s", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatalf("encode result: %s", err)
		}
		return
	}
	printResult(res)
}

func printResult(res replay.Result) {
	fmt.Printf("movement:      %s\n", res.Movement)
	fmt.Printf("frames:        %d (%s)\n", res.Frames, res.Duration)
	fmt.Printf("reps:          %d at frames %v\n", res.Reps, res.RepFrames)
	fmt.Printf("correct:       %d\n", res.Correct)
	fmt.Printf("incorrect:     %d\n", res.Incorrect)
	fmt.Printf("indeterminate: %d\n", res.Indeterminate)

	reasons := make([]string, 0, len(res.Reasons))
	for r := range res.Reasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("  %-24s %d\n", r, res.Reasons[r])
	}
}
