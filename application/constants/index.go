package constants

// fingerprint response codes
// these consist of 4 digit numbers
//
// the 1st 3 identify the scenario
// 4th indicates if the response requires the operator to act at the terminal. 0 means it does not require. 1 means it requires.

var LOW_QUALITY_SCAN uint = 4211         // ask the staff member to rescan the finger
var UNREADABLE_IMAGE uint = 4221         // the scanner sent something that is not an image
var ENROLLMENT_LIMIT_REACHED uint = 4230 // delete templates before enrolling again
var NO_TEMPLATES_FOR_SUBJECT uint = 4240 // the staff member has not enrolled yet
var NO_MATCH uint = 2050                 // a normal result, the probe matched nobody
var REMOTE_STORE_DISABLED uint = 5310    // sync was requested but no remote store is configured

const (
	ENROLLMENT_COMPLETE   = "complete"
	ENROLLMENT_INCOMPLETE = "incomplete"
)
