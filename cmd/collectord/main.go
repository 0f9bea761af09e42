// Command collectord is the field-data collector's process entrypoint:
// loads the project configuration, builds one device façade per recognized
// device, starts them all, and blocks until signaled to shut down.
// Follows a standard signal-handling idiom, adapted for a JSON project
// config and device-manager fan-out rather than a YAML server list.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"fieldcollector/internal/config"
	"fieldcollector/internal/datacenter"
	"fieldcollector/internal/devicemgr"
	"fieldcollector/internal/logging"
	"fieldcollector/pkg/fieldstore"
)

func main() {
	var cfgPath string
	var logDir string
	var storePath string
	flag.StringVar(&cfgPath, "c", "config/project.json", "path to the project JSON config")
	flag.StringVar(&cfgPath, "config", "config/project.json", "path to the project JSON config")
	flag.StringVar(&logDir, "log-dir", "logs", "directory for rotated log files")
	flag.StringVar(&storePath, "store", "", "optional SQLite path to persist the latest value of every point")
	flag.Parse()

	if err := logging.Init(logDir); err != nil {
		log.Fatalf("init logging: %v", err)
	}

	if err := run(cfgPath, storePath); err != nil {
		logrus.Fatalf("collectord: %v", err)
	}
}

func run(cfgPath, storePath string) error {
	proj, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	center := datacenter.New()

	if storePath != "" {
		fs, err := fieldstore.Open(storePath)
		if err != nil {
			return err
		}
		defer fs.Close()
		fs.Attach(center)
	}

	mgr := devicemgr.New(proj, center)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		logrus.Infof("collectord: received signal %v, shutting down", s)
		cancel()
	}()

	mgr.StartAll(ctx)
	logrus.Infof("collectord: started %d device(s)", len(mgr.Devices()))

	<-ctx.Done()
	mgr.StopAll()
	return nil
}
