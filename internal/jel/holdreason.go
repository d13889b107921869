package jel

import "fmt"

// HoldReason describes one HTCondor hold code, grounded verbatim on
// original_source/tms/condor_tools.py's HOLD_REASON_LOOKUP.
type HoldReason struct {
	Message        string
	SubcodeLookup  map[int]string
	SubcodeMeaning string
}

// HoldReasonTable is condor_tools.py's HOLD_REASON_LOOKUP, translated
// attribute-for-attribute; codes 2 and 28-31 are genuinely absent from the
// scheduler's own table, not an omission here.
var HoldReasonTable = map[int]HoldReason{
	1: {Message: "The user put the job on hold with condor_hold"},
	3: {Message: "The PERIODIC_HOLD expression evaluated to True. Or, ON_EXIT_HOLD was true", SubcodeMeaning: "User Specified"},
	4: {Message: "The credentials for the job are invalid"},
	5: {Message: "A job policy expression evaluated to Undefined"},
	6: {Message: "The condor_starter failed to start the executable", SubcodeMeaning: "Errno"},
	7: {Message: "The standard output file for the job could not be opened", SubcodeMeaning: "Errno"},
	8: {Message: "The standard input file for the job could not be opened", SubcodeMeaning: "Errno"},
	9: {Message: "The standard output stream for the job could not be opened", SubcodeMeaning: "Errno"},
	10: {Message: "The standard input stream for the job could not be opened", SubcodeMeaning: "Errno"},
	11: {Message: "An internal HTCondor protocol error was encountered when transferring files"},
	12: {Message: "An error occurred while transferring job output files or self-checkpoint files", SubcodeMeaning: "Errno or plug-in error"},
	13: {Message: "An error occurred while transferring job input files", SubcodeMeaning: "Errno or plug-in error"},
	14: {Message: "The initial working directory of the job cannot be accessed", SubcodeMeaning: "Errno"},
	15: {Message: "The user requested the job be submitted on hold"},
	16: {Message: "Input files are being spooled"},
	17: {Message: "A standard universe job is not compatible with the condor_shadow version available on the submitting machine"},
	18: {Message: "An internal HTCondor protocol error was encountered when transferring files"},
	19: {Message: "<Keyword>_HOOK_PREPARE_JOB was defined but could not be executed or returned failure"},
	20: {Message: "The job missed its deferred execution time and therefore failed to run"},
	21: {Message: "The job was put on hold because WANT_HOLD in the machine policy was true"},
	22: {Message: "Unable to initialize job event log"},
	23: {Message: "Failed to access user account"},
	24: {Message: "No compatible shadow"},
	25: {Message: "Invalid cron settings"},
	26: {Message: "SYSTEM_PERIODIC_HOLD evaluated to true"},
	27: {Message: "The system periodic job policy evaluated to undefined"},
	32: {Message: "The maximum total input file transfer size was exceeded. (See MAX_TRANSFER_INPUT_MB)"},
	33: {Message: "The maximum total output file transfer size was exceeded. (See MAX_TRANSFER_OUTPUT_MB)"},
	34: {Message: "Memory usage exceeds a memory limit"},
	35: {Message: "Specified Docker image was invalid"},
	36: {Message: "Job failed when sent the checkpoint signal it requested"},
	37: {Message: "User error in the EC2 universe", SubcodeLookup: map[int]string{
		1: "Public key file not defined", 2: "Private key file not defined",
		4: "Grid resource string missing EC2 service URL", 9: "Failed to authenticate",
		10: "Can't use existing SSH keypair with the given server's type",
		20: "You, or somebody like you, cancelled this request",
	}},
	38: {Message: "Internal error in the EC2 universe", SubcodeLookup: map[int]string{
		3: "Grid resource type not EC2", 5: "Grid resource type not set",
		7: "Grid job ID is not for EC2", 21: "Unexpected remote job status",
	}},
	39: {Message: "Adminstrator error in the EC2 universe", SubcodeLookup: map[int]string{
		6: "EC2_GAHP not defined",
	}},
	40: {Message: "Connection problem in the EC2 universe", SubcodeLookup: map[int]string{
		11: "while creating an SSH keypair", 12: "while starting an on-demand instance",
		17: "while requesting a spot instance",
	}},
	41: {Message: "Server error in the EC2 universe", SubcodeLookup: map[int]string{
		13: "Abnormal instance termination reason", 14: "Unrecognized instance termination reason",
		22: "Resource was down for too long",
	}},
	42: {Message: "Instance potentially lost due to an error in the EC2 universe", SubcodeLookup: map[int]string{
		15: "Connection error while terminating an instance", 16: "Failed to terminate instance too many times",
		17: "Connection error while terminating a spot request", 18: "Failed to terminated a spot request too many times",
		19: "Spot instance request purged before instance ID acquired",
	}},
	43: {Message: "Pre script failed"},
	44: {Message: "Post script failed"},
	45: {Message: "Test of singularity runtime failed before launching a job"},
	46: {Message: "The job's allowed duration was exceeded"},
	47: {Message: "The job's allowed execution time was exceeded"},
	48: {Message: "Prepare job shadow hook failed when it was executed; status code indicated job should be held"},
}

// HoldReasonToString renders a human-readable hold message from a
// HoldReasonCode/HoldReasonSubCode pair.
//
// This resolves an open question the original leaves implicit: when
// subcode is 0, the message is rendered bare, with no subcode suffix at
// all, regardless of whether the code defines a subcode_lookup or
// subcode_meaning. For a nonzero subcode, a code with a subcode_lookup
// prints the looked-up text, or the bare subcode when the lookup has no
// entry for it; a code with a subcode_meaning prints the subcode followed by
// that meaning; any other code prints the subcode tagged "(unknown)". An
// entirely unrecognized code renders as its own distinct
// "unknown code" form rather than panicking or surfacing a Go error, since
// the watcher must keep reporting status for jobs held with a hold code it
// has never seen.
func HoldReasonToString(code, subcode int) string {
	hr, ok := HoldReasonTable[code]
	if !ok {
		return fmt.Sprintf("%d: %d (unknown)", code, subcode)
	}
	if subcode == 0 {
		return hr.Message
	}
	switch {
	case hr.SubcodeLookup != nil:
		if sub, ok := hr.SubcodeLookup[subcode]; ok {
			return fmt.Sprintf("%s: %s", hr.Message, sub)
		}
		return fmt.Sprintf("%s: %d", hr.Message, subcode)
	case hr.SubcodeMeaning != "":
		return fmt.Sprintf("%s: %d (%s)", hr.Message, subcode, hr.SubcodeMeaning)
	default:
		return fmt.Sprintf("%s: %d (unknown)", hr.Message, subcode)
	}
}
