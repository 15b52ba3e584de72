package server

import (
	"encoding/json"
	"os"
)

type Config struct {
	WorkerSpeed int    `json:"workerSpeed"`
	WorkerQueue int    `json:"workerQueue"`
	FileLog     string `json:"fileLog"`
	Port        string `json:"port"`
	Ssl         bool   `json:"ssl"`
	SslCert     string `json:"sslCert"`
	SslKey      string `json:"sslKey"`
}

var GlobalConfig Config
var PathFile string

func ConfigLoad() {
	var err error

	if len(os.Args) > 1 {
		PathFile = os.Args[1]
	} else {
		PathFile = "./config.json"
	}

	configFile, err := os.Open(PathFile)
	defer configFile.Close()
	if err != nil {
		GlobalConfig = Config{WorkerSpeed: 4, WorkerQueue: 64, FileLog: "akvilon.log"}
	} else {
		jsonParser := json.NewDecoder(configFile)
		jsonParser.Decode(&GlobalConfig)
	}
	if GlobalConfig.WorkerSpeed == 0 {
		GlobalConfig.WorkerSpeed = 4
	}
	if GlobalConfig.WorkerQueue == 0 {
		GlobalConfig.WorkerQueue = 64
	}
	if GlobalConfig.FileLog == "" {
		GlobalConfig.FileLog = "akvilon.log"
	}

	SetLogger(GlobalConfig.FileLog)
}
