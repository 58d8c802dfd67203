package main

import "github.com/t-andrew-do/heroin-eda-demo/cmd"

// TODO: checkpointing for chains (so we can freeze and continue) - which means
//       saving frame/config/state together with the generator position

func main() {
	cmd.Execute()
}
