package main

import (
	"encoding/json"
	"fmt"
	"os"

	diskprobe "github.com/monotasks/shufflesweep/disk_probe"
)

func main() {
	inputStr := os.Args[1]
	input := diskprobe.Input{}
	err := json.Unmarshal([]byte(inputStr), &input)
	if err != nil {
		panic(err)
	}

	if input.Dir == "" {
		input.Dir = "/mnt"
	}
	if len(input.FileSizesBytes) == 0 {
		input.FileSizesBytes = []int{10 * 1024 * 1024, 100 * 1024 * 1024}
	}

	results, err := diskprobe.Run(&input)
	if err != nil {
		panic(err)
	}

	outBuf, err := json.Marshal(results)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(outBuf))
}
