package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"

	"dinohash/pkg/config"
)

// Connect to a dinohash server and relay stdin and stdout to it.
func main() {
	var port = flag.Int("p", 0, "port number")
	var host = flag.String("h", "localhost", "server host")
	flag.Parse()
	if *port == 0 {
		fmt.Println("usage: ./" + config.DBName + "_client -p <port> [-h <host>]")
		return
	}
	conn, err := net.Dial("tcp", net.JoinHostPort(*host, fmt.Sprint(*port)))
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		if _, err := io.Copy(os.Stdout, conn); err != nil {
			log.Print(err)
		}
		close(done)
	}()
	if _, err := io.Copy(conn, os.Stdin); err != nil {
		log.Fatal(err)
	}
	// Let the server finish its last reply once stdin is exhausted.
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.CloseWrite()
	}
	<-done
}
