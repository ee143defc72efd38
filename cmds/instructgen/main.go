package main

import (
	"bufio"
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"
	"gopkg.in/yaml.v2"

	"github.com/datagen-jp/instructgen/checkpoint"
	"github.com/datagen-jp/instructgen/envutil"
	"github.com/datagen-jp/instructgen/generate"
	"github.com/datagen-jp/instructgen/ollama"
)

type endpointsFile struct {
	Endpoints []string `yaml:"endpoints"`
}

func fail(err error) {
	if err != nil {
		log.Fatalln(err)
	}
}

func main() {
	args := struct {
		DatasetSize    int     `arg:"--dataset-size" help:"number of records to generate"`
		ChunkSize      int     `arg:"--chunk-size" help:"entries per checkpoint file"`
		OutputDir      string  `arg:"--output-directory" help:"directory for checkpoint and dataset files"`
		Model          string  `arg:"--model" help:"model name passed to the backend"`
		TimeoutSeconds int     `arg:"--timeout-seconds" help:"per-request timeout"`
		MaxRetries     int     `arg:"--max-retries" help:"attempts per backend call"`
		BackoffSeconds float64 `arg:"--backoff-seconds" help:"base delay for exponential backoff"`
		Servers        int     `arg:"--servers" help:"number of backend servers (1-3); above 1 prompts for URLs"`
		EndpointsPath  string  `arg:"--endpoints" help:"YAML file listing endpoint URLs (overrides --servers)"`
		URL            string  `arg:"--url" help:"endpoint URL for single-server runs"`
	}{
		// flag > environment > default
		DatasetSize:    envutil.GetenvDefaultInt("DATASET_SIZE", 20000),
		ChunkSize:      envutil.GetenvDefaultInt("CHUNK_SIZE", 1000),
		OutputDir:      envutil.GetenvDefault("OUTPUT_DIRECTORY", "./output"),
		Model:          envutil.GetenvDefault("MODEL_NAME", "gpt-oss:20b"),
		TimeoutSeconds: envutil.GetenvDefaultInt("REQUEST_TIMEOUT_SECONDS", 180),
		MaxRetries:     envutil.GetenvDefaultInt("MAX_RETRIES", 4),
		BackoffSeconds: envutil.GetenvDefaultFloat("BACKOFF_BASE_SECONDS", 1.0),
		Servers:        1,
		URL:            envutil.GetenvDefault("OLLAMA_URL", "http://localhost:11434/api/chat"),
	}
	arg.MustParse(&args)

	if args.Servers < 1 || args.Servers > 3 {
		log.Fatalf("--servers must be between 1 and 3, got %d", args.Servers)
	}

	endpoints, err := resolveEndpoints(args.EndpointsPath, args.Servers, args.URL)
	fail(err)
	log.Printf("[INFO] configured endpoints: %v", endpoints)

	opts := ollama.DefaultOptions
	opts.Model = args.Model
	opts.Timeout = time.Duration(args.TimeoutSeconds) * time.Second
	opts.MaxRetries = args.MaxRetries
	opts.BackoffBase = time.Duration(args.BackoffSeconds * float64(time.Second))
	client := ollama.NewClient(opts)

	// probing uses a deliberately small budget to keep startup bounded
	probeOpts := opts
	probeOpts.Timeout = envutil.GetenvDefaultSeconds("PROBE_TIMEOUT_SECONDS", 60*time.Second)
	probeOpts.MaxRetries = 1
	probeClient := ollama.NewClient(probeOpts)

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Printf("[INFO] interrupted, flushing partial results...")
		cancel()
	}()

	pool, err := generate.ProbeEndpoints(ctx, probeClient, endpoints, generate.DefaultSeedPrompt)
	fail(err)
	log.Printf("[INFO] using %d available servers", pool.Size())

	writer, err := checkpoint.NewWriter(args.OutputDir, filePrefix(args.Model), args.ChunkSize)
	fail(err)

	gen := generate.NewGenerator(client, generate.DefaultSeedPrompt, pool.Size() > 1)
	disp := generate.NewDispatcher(gen, pool, writer, generate.DispatcherOpts{
		TargetSize: args.DatasetSize,
	})

	dataset, err := disp.Run(ctx)
	fail(err)

	m := client.Metrics().Read(false)
	log.Printf("[INFO] backend calls: %d requests, %d retries, %d timeouts, %d fallbacks",
		m.Requests, m.Retries, m.Timeouts, m.Fallbacks)
	log.Printf("[INFO] done: %d entries in %s", len(dataset), args.OutputDir)
}

// resolveEndpoints picks the endpoint list: a YAML file when given, an
// interactive prompt for multi-server runs, otherwise the single URL.
func resolveEndpoints(path string, servers int, url string) ([]string, error) {
	if path != "" {
		buf, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var ef endpointsFile
		if err := yaml.Unmarshal(buf, &ef); err != nil {
			return nil, err
		}
		if len(ef.Endpoints) == 0 {
			return nil, fmt.Errorf("no endpoints listed in %s", path)
		}
		return ef.Endpoints, nil
	}

	if servers == 1 {
		return []string{url}, nil
	}

	return promptEndpoints(servers)
}

// promptEndpoints reads one URL per server from stdin, the way the operator
// supplies additional Ollama hosts for a parallel run.
func promptEndpoints(servers int) ([]string, error) {
	scanner := bufio.NewScanner(os.Stdin)
	endpoints := make([]string, 0, servers)
	for i := 0; i < servers; i++ {
		for {
			fmt.Printf("サーバー %d のURL (例: http://192.168.1.252:11434/api/chat): ", i+1)
			if !scanner.Scan() {
				return nil, fmt.Errorf("stdin closed while reading endpoint URLs")
			}
			url := strings.TrimSpace(scanner.Text())
			if url != "" {
				endpoints = append(endpoints, url)
				break
			}
			fmt.Println("URLを入力してください。")
		}
	}
	return endpoints, nil
}

// filePrefix derives the output file prefix from the model name, e.g.
// "gpt-oss:20b" -> "instruction-data-gpt-oss-20b".
func filePrefix(model string) string {
	return "instruction-data-" + strings.ReplaceAll(model, ":", "-")
}
