// Command ztomic 私密原子交换的命令行入口
package main

func main() {
	Execute()
}
