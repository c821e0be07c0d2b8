package main

import "github.com/ValentinKolb/shmKV/cmd"

func main() {
	cmd.Execute()
}
