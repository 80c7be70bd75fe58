package ports

import "github.com/roach88/stepwise/internal/config"

// PropertiesFactory resolves the active project properties for a test case.
type PropertiesFactory interface {
	Properties() config.Properties
}
