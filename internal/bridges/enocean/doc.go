// Package enocean implements the EnOcean radio family for the telegram
// engine.
//
// Telegrams arrive either as complete ESP3 packets from a USB300-style
// gateway (sync byte 0x55, header CRC8, data CRC8) or as bare ERP1 radio
// telegrams:
//
//	RORG | user data | sender ID (4) | status (1)
//
// Profiles are EnOcean Equipment Profiles (EEP) keyed by RORG, FUNC, TYPE
// and an optional manufacturer ID for vendor variants such as Eltako's
// A5-06-01 light sensor.
//
// # Payload layout
//
// Decoders receive the user data bytes followed by the status byte, so a
// 4BS payload is DB3 DB2 DB1 DB0 STATUS and an RPS payload is DB0 STATUS.
//
// # Teach-in
//
// 1BS and 4BS telegrams carry a LRN bit (DB0.3, 0 = teach-in). A 1BS
// teach-in telegram still carries a valid contact state and is decoded;
// a 4BS teach-in carries the device's EEP instead of measurements and is
// reported but not decoded. UTE telegrams are always teach-ins.
package enocean
