package main

import (
	"github.com/rad-link/corestore/internal/common"
)

func main() {
	common.CheckErr(RootCmd().Execute())
}
