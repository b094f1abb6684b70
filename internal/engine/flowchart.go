package engine

import (
	"fmt"
	"strings"

	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

// buildFlowChart renders a mermaid flowchart of a definition's dependency
// graph, one node per task styled by category.
func buildFlowChart(rw *registeredWorkflow) string {
	var sb strings.Builder

	// Modern class styles
	automatedClass := "fill:#F0F4F8,stroke:#B0C4DE,stroke-width:1px,color:#333,rx:10,ry:10;"
	approvalClass := "fill:#FFD93D,stroke:#E6C200,stroke-width:2px,color:#333,stroke-dasharray: 4 2,rx:10,ry:10;"
	integrationClass := "fill:#5568FE,stroke:#3346FF,stroke-width:2px,color:#fff,stroke-dasharray: 4 2,rx:10,ry:10;"
	decisionClass := "fill:#4ECDC4,stroke:#1F9C8C,stroke-width:2px,color:#fff,stroke-dasharray: 4 2,rx:10,ry:10;"
	notificationClass := "fill:#FF6B6B,stroke:#C53030,stroke-width:2px,color:#fff,stroke-dasharray: 4 2,rx:10,ry:10;"

	sb.WriteString("flowchart TD\n")

	// Nodes in execution order so roots render at the top
	for _, id := range rw.order {
		t := rw.tasks[id]
		sb.WriteString(fmt.Sprintf("    %s[%s]\n", id, string(t.Category)+": "+id))
	}

	// Edges from dependency to dependant
	for _, id := range rw.order {
		for _, dep := range rw.tasks[id].DependsOn {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", dep, id))
		}
	}

	// classDefs
	sb.WriteString(fmt.Sprintf("    classDef automatedClass %s\n", automatedClass))
	sb.WriteString(fmt.Sprintf("    classDef approvalClass %s\n", approvalClass))
	sb.WriteString(fmt.Sprintf("    classDef integrationClass %s\n", integrationClass))
	sb.WriteString(fmt.Sprintf("    classDef decisionClass %s\n", decisionClass))
	sb.WriteString(fmt.Sprintf("    classDef notificationClass %s\n", notificationClass))

	// Assign classes based on task categories
	for _, id := range rw.order {
		switch rw.tasks[id].Category {
		case models.CategoryHumanApproval:
			sb.WriteString(fmt.Sprintf("    class %s approvalClass;\n", id))
		case models.CategorySystemIntegration:
			sb.WriteString(fmt.Sprintf("    class %s integrationClass;\n", id))
		case models.CategoryDecision:
			sb.WriteString(fmt.Sprintf("    class %s decisionClass;\n", id))
		case models.CategoryNotification:
			sb.WriteString(fmt.Sprintf("    class %s notificationClass;\n", id))
		default:
			sb.WriteString(fmt.Sprintf("    class %s automatedClass;\n", id))
		}
	}

	return sb.String()
}
