package main

import "github.com/shape-portfolio/site/internal/store"

var (
	HeroTitle   = "Engineering Things That Move"
	HeroTagline = "Electronics, robotics and embedded systems, from schematic to flight."

	AboutMe = `I design circuits, write firmware and bolt the two together until something flies,
	drives or grabs. Most projects start on a breadboard and end as a working prototype with
	a report explaining what broke along the way.`

	ContactIntro = `Have a project in mind, a question about one of mine, or an opening on your team?
	Send a message and I will get back to you.`

	ContactThanks = "Thank you for your message! I will get back to you soon."
)

// fallbackProjects is shown on the public pages when the store cannot be
// read or has nothing live yet.
var fallbackProjects = []store.Project{
	{
		ID:           1,
		Name:         "Autonomous Drone System",
		Mission:      "Fly a fully autonomous route through a cluttered indoor space.",
		MissionBrief: "An unmanned aerial platform combining LiDAR, ultrasonic and camera input for real-time obstacle avoidance, with learned path optimisation and adaptive flight control.",
		Architecture: `FLIGHT CONTROLLER (Arduino Mega)
        |
  +-----+-----+
  |     |     |
LiDAR  IMU   GPS
  |     |     |
  +-----+-----+
        |
ESP32 AI Module (Computer Vision)`,
		Stack:        []string{"Arduino", "ESP32", "LiDAR", "IMU", "GPS", "Computer Vision", "AI/ML", "RF Communication"},
		Images:       []string{},
		StatusValues: store.StatusValues{Stability: 92, Range: 85, Reliability: 88},
		Status:       store.StatusLive,
	},
	{
		ID:           2,
		Name:         "Smart Home Automation",
		Mission:      "Tie every sensor in the house into one predictable system.",
		MissionBrief: "IoT devices and sensors connected over MQTT, with sensor fusion driving predictive automation and energy savings.",
		Architecture: `MQTT BROKER (Cloud)
        |
  +-----+------+
  |     |      |
ESP32  ESP32  Node.js
Gateway Sensor Server
  |            |
React Dashboard (Web)`,
		Stack:        []string{"ESP32", "MQTT", "Node.js", "React", "Sensors", "IoT", "Cloud", "REST API"},
		Images:       []string{},
		StatusValues: store.StatusValues{Stability: 95, Range: 90, Reliability: 93},
		Status:       store.StatusLive,
	},
	{
		ID:           3,
		Name:         "6-DOF Robotic Arm",
		Mission:      "Sub-millimetre manipulation on a hobby budget.",
		MissionBrief: "Six high-torque servos with position feedback, driven by an inverse kinematics solver on a custom 3D-printed frame.",
		Architecture: `Arduino Control Unit (Inverse Kinematics)
        |
  +-----+-----+
  |     |     |
Base Shoulder Elbow
  |     |     |
Wrist  Wrist  Gripper`,
		Stack:        []string{"Arduino", "C++", "Servo Motors", "3D Printing", "Inverse Kinematics", "Control Systems"},
		Images:       []string{},
		StatusValues: store.StatusValues{Stability: 88, Range: 75, Reliability: 90},
		Status:       store.StatusLive,
	},
}

// fallbackProject returns the built-in project with the given id.
func fallbackProject(id int64) (store.Project, bool) {
	for _, p := range fallbackProjects {
		if p.ID == id {
			return p, true
		}
	}
	return store.Project{}, false
}
