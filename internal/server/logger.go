package server

import "github.com/sadlil/gologger"

var Logger gologger.GoLogger

// SetLogger opens the file-backed application log. Everything in the
// server writes through the package-level Logger.
func SetLogger(fileLog string) {
	Logger = gologger.GetLogger(gologger.FILE, fileLog)
	Logger.Info("akvilon starting")
}
