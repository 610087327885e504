package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mailfold/mailfold/folder"
	"github.com/mailfold/mailfold/folder/mh"
	"github.com/mailfold/mailfold/version"
)

func main() {
	if level, err := logrus.ParseLevel(os.Getenv("MAILFOLD_LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}

	if len(os.Args) < 2 {
		logrus.Fatalf("Usage: %v <folder-dir>", os.Args[0])
	}

	logrus.Infof("%v %v", version.Current.Name, version.Current.Version.String())

	f, err := mh.Open(os.Args[1])
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open folder")
	}
	defer f.Close(folder.Discard)

	for _, m := range f.Messages(folder.All) {
		fmt.Printf("%4d  %-30.30s  %-40.40s  %v\n",
			m.Number(),
			m.Head().Value("From"),
			m.Head().Value("Subject"),
			m.Labels().Names(),
		)
	}
}
