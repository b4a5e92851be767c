// Package scriptgen produces SAP automation script text from BAPI and GUI
// scripting templates.
package scriptgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/astc-project/astc-backend/internal/framework"
	"github.com/astc-project/astc-backend/internal/framework/messaging"
)

// ScriptType selects the automation mechanism for a generated script.
type ScriptType string

const (
	TypeBAPI      ScriptType = "bapi"
	TypeGUIScript ScriptType = "gui_script"
)

// Script is one generated automation script.
type Script struct {
	Transaction string     `json:"transaction"`
	Type        ScriptType `json:"script_type"`
	Language    string     `json:"language"`
	Code        string     `json:"code"`
	BAPIsUsed   []string   `json:"bapis_used,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
}

type bapiInfo struct {
	primary    string
	secondary  []string
	structures []string
}

var bapiTable = map[string]bapiInfo{
	"ME21N": {
		primary:    "BAPI_PO_CREATE1",
		secondary:  []string{"BAPI_PO_CHANGE", "BAPI_PO_GETDETAIL"},
		structures: []string{"BAPIMEPOHEADER", "BAPIMEPOITEM", "BAPIMEPOACCOUNT"},
	},
	"MIGO": {
		primary:    "BAPI_GOODSMVT_CREATE",
		secondary:  []string{"BAPI_GOODSMVT_GETDETAIL", "BAPI_GOODSMVT_CANCEL"},
		structures: []string{"BAPI2017_GM_HEAD_01", "BAPI2017_GM_ITEM_CREATE"},
	},
	"VA01": {
		primary:    "BAPI_SALESORDER_CREATEFROMDAT2",
		secondary:  []string{"BAPI_SALESORDER_CHANGE", "BAPI_SALESORDER_GETDETAIL"},
		structures: []string{"BAPISDHD1", "BAPISDITM", "BAPISDCOND"},
	},
	"FB60": {
		primary:    "BAPI_ACC_INVOICE_RECEIPT_POST",
		secondary:  []string{"BAPI_ACC_DOCUMENT_POST", "BAPI_ACC_DOCUMENT_CHECK"},
		structures: []string{"BAPI_INCINV_CREATE_HEADER", "BAPI_INCINV_CREATE_ITEM"},
	},
}

// Agent is the script generation agent.
type Agent struct {
	*framework.BaseAgent
}

// New constructs the agent with its dispatch table wired.
func New() *Agent {
	a := &Agent{
		BaseAgent: framework.NewBaseAgent("script_generation", "Script Generation Agent", []string{
			"bapi_script_generation",
			"gui_script_generation",
			"automation_scripting",
		}),
	}
	a.On("generate_script", a.generateScript)
	return a
}

func (a *Agent) generateScript(_ context.Context, msg *messaging.Message) (messaging.Payload, error) {
	var req struct {
		Transaction string `json:"transaction"`
		ScriptType  string `json:"script_type"`
	}
	if err := msg.Payload.Decode(&req); err != nil {
		return framework.ErrorPayload(a.ID(), "invalid generate_script payload"), nil
	}
	if req.Transaction == "" {
		return framework.ErrorPayload(a.ID(), "transaction is required"), nil
	}

	scriptType := ScriptType(req.ScriptType)
	if scriptType != TypeGUIScript {
		scriptType = TypeBAPI
	}

	var script Script
	switch scriptType {
	case TypeGUIScript:
		script = guiScript(req.Transaction)
	default:
		script = bapiScript(req.Transaction)
	}

	return messaging.NewPayload("script_generated", map[string]any{
		"status":   "success",
		"agent_id": a.ID(),
		"script":   script,
	})
}

func bapiScript(transaction string) Script {
	info, ok := bapiTable[transaction]
	if !ok {
		info = bapiInfo{primary: "BAPI_TRANSACTION_COMMIT"}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "* Automation script for %s\n", transaction)
	fmt.Fprintf(&b, "DATA: lt_return TYPE TABLE OF bapiret2.\n\n")
	for _, structure := range info.structures {
		fmt.Fprintf(&b, "DATA: ls_%s TYPE %s.\n", strings.ToLower(structure), structure)
	}
	fmt.Fprintf(&b, "\nCALL FUNCTION '%s'\n", info.primary)
	fmt.Fprintf(&b, "  TABLES\n    return = lt_return.\n\n")
	fmt.Fprintf(&b, "LOOP AT lt_return INTO DATA(ls_return) WHERE type CA 'EA'.\n")
	fmt.Fprintf(&b, "  MESSAGE ls_return-message TYPE 'E'.\nENDLOOP.\n\n")
	fmt.Fprintf(&b, "CALL FUNCTION 'BAPI_TRANSACTION_COMMIT'\n  EXPORTING\n    wait = 'X'.\n")

	bapis := append([]string{info.primary}, info.secondary...)
	return Script{
		Transaction: transaction,
		Type:        TypeBAPI,
		Language:    "ABAP",
		Code:        b.String(),
		BAPIsUsed:   bapis,
		GeneratedAt: time.Now(),
	}
}

func guiScript(transaction string) Script {
	var b strings.Builder
	fmt.Fprintf(&b, "' GUI script for %s\n", transaction)
	fmt.Fprintf(&b, "session.findById(\"wnd[0]/tbar[0]/okcd\").text = \"/n%s\"\n", transaction)
	fmt.Fprintf(&b, "session.findById(\"wnd[0]\").sendVKey 0\n")
	fmt.Fprintf(&b, "' Fill transaction fields\n")
	fmt.Fprintf(&b, "session.findById(\"wnd[0]/tbar[0]/btn[11]\").press\n")

	return Script{
		Transaction: transaction,
		Type:        TypeGUIScript,
		Language:    "VBScript",
		Code:        b.String(),
		GeneratedAt: time.Now(),
	}
}
