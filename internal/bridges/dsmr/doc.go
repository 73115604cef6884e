// Package dsmr implements the DSMR P1 smart meter family for the telegram
// engine.
//
// A P1 telegram is ASCII text:
//
//	/ISk5\2MT382-1000          header with meter identification
//
//	1-3:0.2.8(50)              one COSEM object per line
//	1-0:1.8.1(123456.789*kWh)
//	...
//	!EF2F                      end marker with CRC16
//
// The CRC is CRC-16/ARC over everything from '/' up to and including '!',
// written as four hex digits. Meters older than DSMR 4 send no CRC; their
// telegrams are accepted as OK.
//
// Every COSEM line becomes a unit keyed by its OBIS code, so profiles are
// registered per OBIS code and a telegram yields one value set per line.
// The unit address is the header identification, which is stable for the
// lifetime of the meter.
package dsmr
