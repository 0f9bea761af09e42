// Command fielddevsim runs a standalone Modbus TCP device simulator, used
// as a test fixture for exercising the bus adapter and device runner
// against a real socket instead of a fake. Every register bank starts
// zeroed; an optional point catalog is only loaded and its point count
// printed.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fieldcollector/internal/catalog"
	"fieldcollector/internal/simserver"
)

func main() {
	var listenAddr string
	var registerFile string
	flag.StringVar(&listenAddr, "listen", "127.0.0.1:5502", "TCP address to listen on")
	flag.StringVar(&registerFile, "register-file", "", "Optional point catalog xlsx to load and report the point count of (register values are not seeded from it)")
	flag.Parse()

	if err := run(listenAddr, registerFile); err != nil {
		log.Fatal(err)
	}
}

func run(listenAddr, registerFile string) error {
	srv := simserver.NewServer()

	if registerFile != "" {
		cat, err := catalog.Load(registerFile)
		if err != nil {
			return fmt.Errorf("load register file: %w", err)
		}
		fmt.Printf("fielddevsim: loaded %d points from %s\n", len(cat.Defs()), registerFile)
	}

	if err := srv.Listen(listenAddr); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer srv.Close()

	fmt.Printf("fielddevsim: listening on %s\n", listenAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}
