package printer

import "github.com/slok/pgembed/internal/model"

// Printer knows how to print instance information in different formats.
type Printer interface {
	PrintList(instances []model.Instance) error
	PrintStatus(instance model.Instance, conn *model.ConnectionInfo) error
	PrintMessage(msg string) error
}
