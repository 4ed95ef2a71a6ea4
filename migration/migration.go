package migration

type Direction rune

const (
	Down Direction = 'd'
	Up   Direction = 'u'
)

// ---

const VersionBits = 64

type Version uint64

type Migration struct {
	Version Version
	Name    string
}
