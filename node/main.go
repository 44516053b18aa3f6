package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/ngaut/log"

	"github.com/julianpistorius/pumpkindb/kv/config"
	"github.com/julianpistorius/pumpkindb/kv/engine"
	"github.com/julianpistorius/pumpkindb/kv/storage"
	"github.com/julianpistorius/pumpkindb/kv/vm"
)

var (
	configPath   = flag.String("config", "", "config file path (TOML), overlaid on defaults")
	dbPath       = flag.String("db-path", "/tmp/pumpkindb", "Directory to store the data in. Should exist and be writable.")
	logLevel     = flag.String("L", "info", "log level")
	vlogFileSize = flag.Int64("vlog-file-size", 256*1024*1024, "value log file size")
	maxTableSize = flag.Int64("max-table-size", 64<<20, "Each table (or file) is at most this size.")
	numMemTables = flag.Int("num-mem-tables", 3, "Maximum number of tables to keep in memory, before stalling.")
	valThreshold = flag.Int("value-threshold", 20, "If value size >= this threshold, only store value offsets in tree.")
	syncWrites   = flag.Bool("sync-write", true, "Sync all writes to disk. Slows down data loading significantly.")
)

func main() {
	flag.Parse()
	log.SetLevelByString(*logLevel)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pumpkindb-node [flags] <program-file>")
		os.Exit(2)
	}

	conf := loadConfig()
	log.SetLevelByString(conf.LogLevel)
	eng, err := engine.Open(conf)
	if err != nil {
		log.Fatalf("open engine: %v", err)
	}
	defer eng.Close()

	code, err := ioutil.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("read program: %v", err)
	}

	sched := vm.NewScheduler(storage.NewHandler(eng))
	pid := sched.Spawn(code)
	env := sched.Env(pid)
	failures := sched.Run()
	if err, ok := failures[pid]; ok {
		log.Errorf("process %d: %v", pid, err)
		os.Exit(1)
	}
	for i := len(env.Stack()) - 1; i >= 0; i-- {
		fmt.Printf("%x\n", env.Stack()[i])
	}
}

func loadConfig() *config.Config {
	if *configPath != "" {
		conf, err := config.FromFile(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		return conf
	}
	conf := config.NewDefaultConfig()
	conf.LogLevel = *logLevel
	conf.DBPath = *dbPath
	conf.Engine.VlogFileSize = *vlogFileSize
	conf.Engine.MaxTableSize = *maxTableSize
	conf.Engine.NumMemTables = *numMemTables
	conf.Engine.ValueThreshold = *valThreshold
	conf.Engine.SyncWrites = *syncWrites
	if err := conf.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}
