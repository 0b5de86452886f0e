/*
Package iso7816 implements data structures and logic to interact with smart cards according to the ISO/IEC 7816 standard.

This package provides the fundamental building blocks for APDU (Application Protocol Data Unit) communication: Command and Response structures, Class and Instruction bytes, Status Word (SW) analysis, and a Client that hides the transport-level "61XX" and "6CXX" round trips.

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

# Usage Example: Selecting an application

	client := iso7816.NewClient(transport)

	trace, err := client.Send(ctx, iso7816.SelectByName([]byte("2PAY.SYS.DDF01")))
	if err != nil {
	    return err
	}

	if !trace.IsSuccess() {
	    return fmt.Errorf("select failed: %s", trace.Response().Status.Verbose())
	}

	fmt.Print(trace.Describe())
*/
package iso7816
