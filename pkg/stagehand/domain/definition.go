package domain

// WorkflowDefinition is a named, acyclic graph of task descriptors. Once
// registered it is immutable; the engine validates it and derives Order when
// none is given. The declaration order of Tasks breaks ties between tasks
// that become eligible together.
type WorkflowDefinition struct {
	Name        string
	Description string
	Tasks       []TaskDescriptor
	Order       []string // optional explicit topological order
}

// Task returns the descriptor with the given id, if present.
func (d WorkflowDefinition) Task(id string) (TaskDescriptor, bool) {
	for _, t := range d.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskDescriptor{}, false
}
