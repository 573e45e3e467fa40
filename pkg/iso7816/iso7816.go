/*
Package iso7816 implements data structures and logic to interact with smart cards according to the ISO/IEC 7816 standard.

This package provides the fundamental building blocks for APDU (Application Protocol Data Unit) communication: Command and Response structures with automatic short/extended length encoding, Status Word (SW) analysis, parsed CLA/INS byte models, and a Client that drives a physical connection while absorbing transport-level retry procedures.

# Fundamentals

The communication with a smart card is strictly synchronous:
 1. The Host sends a Command APDU (Header + Optional Body).
 2. The Card processes it and returns a Response APDU (Optional Body + Trailer SW1/SW2).

# Status Words

Every response ends with a 2-byte Status Word (SW).
  - 0x9000: Success (OK).
  - 0x61XX: Success, but response data is still available (XX bytes).
  - 0x6CXX: Error, wrong length expectation (XX is the correct length).
  - Other: Various error conditions.

# Traces

A single logical command may take several wire exchanges (GET RESPONSE after
61XX, a corrected retry after 6CXX). Client.Send returns a Trace covering
the whole conversation; Trace.IsSuccess evaluates the final outcome. The
transaction engine copies every Trace entry into its session exchange log,
so nothing the card said is lost to the retry machinery.

# Usage Example

	client := iso7816.NewClient(card) // card implements Transmitter
	cls, _ := iso7816.NewClass(0x00)

	trace, err := client.Send(iso7816.SelectByAID(cls, aid))
	if err != nil {
	    log.Fatal(err) // transport failure
	}

	if trace.IsSuccess() {
	    data := trace.Last().Response.Data // the FCI, if the card returned one
	    _ = data
	}
*/
package iso7816
