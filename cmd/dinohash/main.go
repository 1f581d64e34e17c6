package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"dinohash/pkg/config"
	"dinohash/pkg/database"
	"dinohash/pkg/logger"
	"dinohash/pkg/pager"
	"dinohash/pkg/repl"

	"github.com/google/uuid"
)

// Listens for SIGINT or SIGTERM and closes the database.
func setupCloseHandler(closer func() error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("closehandler invoked")
		if err := closer(); err != nil {
			fmt.Println(err)
		}
		os.Exit(0)
	}()
}

// Start listening for connections at port `port`, running a REPL session
// on each one.
func startServer(r *repl.REPL, prompt string, port int) {
	handleConn := func(c net.Conn) {
		defer c.Close()
		r.Run(uuid.New(), prompt, c, c)
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%v", port))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%v server started listening on localhost:%v\n", config.DBName,
		listener.Addr().(*net.TCPAddr).Port)
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Print(err)
			continue
		}
		go handleConn(conn)
	}
}

func main() {
	var promptFlag = flag.Bool("c", true, "use prompt?")
	var projectFlag = flag.String("project", "hash", "choose project: [pager,hash]")
	var dbFlag = flag.String("db", "data/", "DB folder")
	var portFlag = flag.Int("p", 0, "serve the REPL on this port instead of stdin")
	var verboseFlag = flag.Bool("v", false, "log splits and directory doubling")
	flag.Parse()

	level := slog.LevelWarn
	if *verboseFlag {
		level = slog.LevelDebug
	}
	lg := logger.NewTextLogger(level)

	prompt := config.GetPrompt(*promptFlag)
	var r *repl.REPL

	switch *projectFlag {
	case "pager":
		if err := os.MkdirAll(*dbFlag, 0775); err != nil {
			fmt.Println(err)
			return
		}
		p, err := pager.New(filepath.Join(*dbFlag, "pager.tmp"))
		if err != nil {
			fmt.Println(err)
			return
		}
		defer p.Close()
		setupCloseHandler(p.Close)
		r = pager.PagerRepl(p)

	case "hash":
		db, err := database.Open(*dbFlag, lg)
		if err != nil {
			fmt.Println(err)
			return
		}
		defer db.Close()
		setupCloseHandler(db.Close)
		r = database.DatabaseRepl(db)

	default:
		fmt.Println("must specify -project [pager,hash]")
		return
	}

	if *portFlag != 0 {
		startServer(r, prompt, *portFlag)
		return
	}
	r.Run(uuid.New(), prompt, nil, nil)
}
