package main

import (
	"encoding/json"
	"io/ioutil"
	"log"
	"path/filepath"
	"sort"

	arg "github.com/alexflint/go-arg"
	"github.com/sbwhitecap/tqdm"
	"github.com/sbwhitecap/tqdm/iterators"

	"github.com/datagen-jp/instructgen/checkpoint"
	"github.com/datagen-jp/instructgen/generate"
)

// mergechunks rebuilds the aggregate dataset file from the checkpoint chunks
// of a run that died before finalize could write it. Chunks are concatenated
// in sequence order, which is commit order.
func main() {
	args := struct {
		Dir    string `arg:"positional,required" help:"run output directory"`
		Prefix string `arg:"--prefix" help:"checkpoint file prefix"`
		Out    string `arg:"--out" help:"aggregate path (default <dir>/<prefix>.json)"`
	}{
		Prefix: "instruction-data-gpt-oss-20b",
	}
	arg.MustParse(&args)

	if args.Out == "" {
		args.Out = filepath.Join(args.Dir, args.Prefix+".json")
	}

	files, err := filepath.Glob(filepath.Join(args.Dir, args.Prefix+".tmp.*.json"))
	if err != nil {
		log.Fatalln(err)
	}
	if len(files) == 0 {
		log.Fatalf("no checkpoint files matching %s.tmp.*.json in %s", args.Prefix, args.Dir)
	}
	sort.Strings(files)

	var dataset []generate.Entry
	err = tqdm.With(iterators.Interval(0, len(files)), "Merging chunks", func(c interface{}) (brk bool) {
		path := files[c.(int)]
		buf, err := ioutil.ReadFile(path)
		if err != nil {
			log.Fatalln(err)
		}
		var entries []generate.Entry
		if err := json.Unmarshal(buf, &entries); err != nil {
			log.Fatalf("malformed checkpoint %s: %v", path, err)
		}
		dataset = append(dataset, entries...)
		return
	})
	if err != nil {
		log.Fatalln(err)
	}

	size, err := checkpoint.WriteEntries(args.Out, dataset)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("wrote %d entries (%d bytes) from %d chunks to %s", len(dataset), size, len(files), args.Out)
}
