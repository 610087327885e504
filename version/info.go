package version

import "fmt"

type Version struct {
	Major, Minor, Patch int
}

func (v *Version) String() string {
	return fmt.Sprintf("%02v.%02v.%02v", v.Major, v.Minor, v.Patch)
}

type Info struct {
	Name    string
	Version Version
}

// Current identifies this build of the library.
var Current = Info{
	Name:    "mailfold",
	Version: Version{Major: 0, Minor: 1, Patch: 0},
}
