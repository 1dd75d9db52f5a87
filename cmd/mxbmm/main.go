// Command mxbmm manages MX Bikes mods.
package main

func main() {
	Execute()
}
