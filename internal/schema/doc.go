// Package schema validates action records against CUE constraints.
//
// A schema source declares one field per action type under "actions". The
// field constrains the record's payload, meaning every key except "type":
//
//	actions: {
//	    "UP": close({})
//	    "todos/add": close({text: string & !=""})
//	}
//	state: {...}
//
// An optional "state" field constrains the application state.
//
// Validation uses the CUE Go API directly (not the CLI). Structs are open
// unless written with close(), exactly as in CUE.
package schema
